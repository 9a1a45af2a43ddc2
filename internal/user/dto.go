// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/vidshelf/internal/model"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,max=100"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	p.PageSize = min(p.PageSize, maxPageSize)
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(a *model.Account) UserResponse {
	role := a.Role
	if role == "" {
		role = model.RoleUser
	}

	return UserResponse{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		Name:        a.Name,
		DisplayName: a.DisplayName,
		Role:        role,
		CreatedAt:   a.CreatedAt,
	}
}

func ToUserResponseList(accounts []model.Account) []UserResponse {
	responses := make([]UserResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, ToUserResponse(&accounts[i]))
	}
	return responses
}
