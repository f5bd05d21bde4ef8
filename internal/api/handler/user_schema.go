package handler

import (
	"github.com/accounthub/user-management/internal/core/domain"
	"github.com/accounthub/user-management/internal/core/ports"
)

// --- Request types ---

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// updateUserRequest is a partial update: nil means "leave unchanged".
// RoleIDs distinguishes absent (nil) from explicitly empty, which the
// service rejects.
type updateUserRequest struct {
	Username   *string `json:"username"    validate:"omitempty,min=3,max=64"`
	Email      *string `json:"email"       validate:"omitempty,email"`
	Password   *string `json:"password"    validate:"omitempty,min=8"`
	IsVerified *bool   `json:"is_verified"`
	RoleIDs    []int64 `json:"role_ids"`
}

// --- Response types ---

// userResponse is the transport view of a user. The password hash is never
// exposed here.
type userResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}

// --- Mapping ---

func toCreateInput(req createUserRequest) ports.CreateUserInput {
	return ports.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
}

func toUpdateInput(req updateUserRequest) ports.UpdateUserInput {
	return ports.UpdateUserInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		IsVerified: req.IsVerified,
		RoleIDs:    req.RoleIDs,
	}
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
	}
}

func toUserListResponse(users []domain.User) []userResponse {
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return out
}
