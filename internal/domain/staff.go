package domain

import "time"

// StaffRole enumerates portal roles as stored by the auth service.
type StaffRole string

const (
	StaffRoleUser       StaffRole = "user"
	StaffRoleAdmin      StaffRole = "admin"
	StaffRoleSuperadmin StaffRole = "superadmin"
)

// StaffUser models a portal operator. The engine reads staff records
// only; the external auth service owns them.
type StaffUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Department   string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
