package dto

import (
	"time"

	"github.com/spec-kit/request-checker/internal/domain"
)

// UserResponse is the API view of a user record.
type UserResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName"`
	Role        domain.UserRole `json:"role"`
	RoleLabel   string          `json:"roleLabel"`
	Department  *string         `json:"department,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		RoleLabel:   u.Role.Label(),
		Department:  u.Department,
		CreatedAt:   u.CreatedAt,
	}
}
