package ports

import (
	"context"

	"github.com/accounthub/user-management/internal/core/domain"
)

// CreateUserInput carries the data needed to register a new user.
// Password is plaintext and is discarded after hashing.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
}

// UpdateUserInput carries a partial update. A nil field means "leave
// unchanged", which is distinct from an explicitly provided zero value.
// RoleIDs follows the same convention: nil leaves roles untouched, an empty
// non-nil slice is rejected by the service.
type UpdateUserInput struct {
	Username   *string
	Email      *string
	Password   *string
	IsVerified *bool
	RoleIDs    []int64
}

// UserService defines the use-case operations around user identity and role
// membership. It is the sole writer of user state.
type UserService interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	// GetUserByID returns (nil, nil) when the user does not exist.
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, input UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}
