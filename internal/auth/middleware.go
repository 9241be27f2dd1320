package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/query-engine/internal/directory"
	"github.com/spec-kit/query-engine/internal/domain"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

const actorKey = "auth_actor"

// Middleware validates bearer tokens and loads the acting staff user
// from the directory.
type Middleware struct {
	tokens *TokenManager
	staff  directory.StaffDirectory
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, staff directory.StaffDirectory) *Middleware {
	return &Middleware{tokens: tokens, staff: staff}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	actor, err := m.staff.GetByID(c.Context(), claims.SubjectID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return apperrors.NewUnauthenticated("unknown subject")
		}
		return apperrors.MapError(err)
	}
	if !actor.Active {
		return apperrors.NewUnauthenticated("account inactive")
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromContext retrieves the authenticated staff user.
func ActorFromContext(c *fiber.Ctx) (*domain.StaffUser, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return nil, false
	}
	actor, ok := val.(*domain.StaffUser)
	return actor, ok
}
