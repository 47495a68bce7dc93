package domain

import "time"

// UserRole enumerates helpdesk roles.
type UserRole string

const (
	RoleAdministrator UserRole = "ADMINISTRATOR"
	RoleDirector      UserRole = "DIRECTOR"
	RoleTechnician    UserRole = "TECHNICIAN"
	RoleCollaborator  UserRole = "COLLABORATOR"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleAdministrator, RoleDirector, RoleTechnician, RoleCollaborator:
		return true
	}
	return false
}

// User is the single account model; the role field decides capabilities.
// Accounts are soft-deactivated, never deleted, so tickets and messages
// keep valid author references.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	Department   string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
