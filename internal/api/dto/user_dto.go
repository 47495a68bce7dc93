package dto

import "github.com/spec-kit/helpdesk-service/internal/domain"

// CreateUserRequest payload.
type CreateUserRequest struct {
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	Password   string          `json:"password"`
	Role       domain.UserRole `json:"role"`
	Department string          `json:"department"`
}

// UpdateUserRequest is a partial account update. Absent fields stay
// unchanged; an empty password keeps the current one.
type UpdateUserRequest struct {
	Email      *string          `json:"email"`
	Password   *string          `json:"password"`
	Role       *domain.UserRole `json:"role"`
	Department *string          `json:"department"`
	IsActive   *bool            `json:"is_active"`
}
