package policy

import (
	"github.com/spec-kit/query-engine/internal/domain"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// Action enumerates the capabilities the engine gates on role.
type Action string

const (
	ActionViewQueries  Action = "view_queries"
	ActionChangeStatus Action = "change_status"
	ActionResolve      Action = "resolve"
	ActionAssign       Action = "assign"
)

// capabilities maps each action to the roles allowed to perform it.
var capabilities = map[Action]map[domain.StaffRole]struct{}{
	ActionViewQueries: {
		domain.StaffRoleAdmin:      {},
		domain.StaffRoleSuperadmin: {},
	},
	ActionChangeStatus: {
		domain.StaffRoleAdmin:      {},
		domain.StaffRoleSuperadmin: {},
	},
	ActionResolve: {
		domain.StaffRoleAdmin:      {},
		domain.StaffRoleSuperadmin: {},
	},
	ActionAssign: {
		domain.StaffRoleSuperadmin: {},
	},
}

// Authorize checks the capability table. A denied call returns an
// explicit error; callers must not mutate or notify afterwards.
func Authorize(actor *domain.StaffUser, action Action) error {
	if actor == nil {
		return apperrors.NewAuthorization("actor required")
	}
	allowed, known := capabilities[action]
	if !known {
		return apperrors.NewAuthorization("unknown action " + string(action))
	}
	if _, ok := allowed[actor.Role]; !ok {
		return apperrors.NewAuthorization(string(actor.Role) + " may not " + string(action))
	}
	return nil
}
