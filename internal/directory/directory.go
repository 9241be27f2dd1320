package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/query-engine/internal/domain"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// StaffDirectory is the engine's read-only view of portal staff. Staff
// records belong to the external auth service; the engine only resolves
// assignees and actors.
type StaffDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.StaffUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffUser, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffUser, error)
}

// StaffFilter defines lookup parameters for staff listing.
type StaffFilter struct {
	Role       *domain.StaffRole
	Department *string
	Active     *bool
	Limit      int
	Offset     int
}

type staffDirectory struct {
	pool *pgxpool.Pool
}

// NewStaffDirectory instantiates the directory.
func NewStaffDirectory(pool *pgxpool.Pool) StaffDirectory {
	return &staffDirectory{pool: pool}
}

const staffColumns = `id, name, email, password_hash, department, role, active_flag, created_at, updated_at`

func (d *staffDirectory) GetByID(ctx context.Context, id string) (*domain.StaffUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_users WHERE id=$1`, staffColumns)
	staff, err := d.fetchSingle(ctx, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
		}
		return nil, apperrors.NewPersistence("staff read failed", err)
	}
	return staff, nil
}

func (d *staffDirectory) GetByEmail(ctx context.Context, email string) (*domain.StaffUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_users WHERE email=$1`, staffColumns)
	staff, err := d.fetchSingle(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"email": email})
		}
		return nil, apperrors.NewPersistence("staff read failed", err)
	}
	return staff, nil
}

func (d *staffDirectory) fetchSingle(ctx context.Context, query string, arg any) (*domain.StaffUser, error) {
	var staff domain.StaffUser
	if err := d.pool.QueryRow(ctx, query, arg).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Department,
		&staff.Role,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}

func (d *staffDirectory) List(ctx context.Context, filter StaffFilter) ([]domain.StaffUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_users`, staffColumns)
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistence("staff list failed", err)
	}
	defer rows.Close()

	var result []domain.StaffUser
	for rows.Next() {
		var staff domain.StaffUser
		if err := rows.Scan(
			&staff.ID,
			&staff.Name,
			&staff.Email,
			&staff.PasswordHash,
			&staff.Department,
			&staff.Role,
			&staff.Active,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewPersistence("staff scan failed", err)
		}
		result = append(result, staff)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistence("staff list failed", err)
	}
	return result, nil
}
