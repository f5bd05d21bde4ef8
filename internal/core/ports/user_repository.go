package ports

import (
	"context"

	"github.com/accounthub/user-management/internal/core/domain"
)

// UserRepository defines persistence operations for users.
// Lookups return (nil, nil) when no record matches; absence is only an error
// where the service layer decides it is.
type UserRepository interface {
	// Create persists a new user and returns it with the assigned ID.
	Create(ctx context.Context, user domain.User) (*domain.User, error)
	GetAll(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByUsernameOrEmail returns a user whose username or email equals the
	// provided values. An empty string disables that side of the match.
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	// Update replaces the whole stored record identified by user.ID.
	// Fails when the ID is unknown.
	Update(ctx context.Context, user domain.User) (*domain.User, error)
	// Delete removes the user and its role associations. Deleting an unknown
	// ID is a storage-level no-op; the service enforces existence first.
	Delete(ctx context.Context, id int64) error
}

// RoleRepository defines read access to roles. Roles are provisioned
// out-of-band and never written through this interface.
type RoleRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.Role, error)
	// GetByIDs returns only the roles that exist; an empty input yields an
	// empty result, never an error.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Role, error)
}
