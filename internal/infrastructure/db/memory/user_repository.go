// Package memory provides deterministic in-memory implementations of the
// repository ports. They back unit tests and small development setups; the
// postgres package is the durable counterpart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/accounthub/user-management/internal/core/domain"
)

// UserRepository stores users in insertion order, guarded by a mutex so the
// HTTP layer can share one instance across requests.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	order  []int64
	data   map[int64]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		nextID: 1,
		data:   make(map[int64]domain.User),
	}
}

func (r *UserRepository) Create(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = r.nextID
	r.nextID++
	user.Roles = cloneRoles(user.Roles)

	r.data[user.ID] = user
	r.order = append(r.order, user.ID)

	created := user
	return &created, nil
}

func (r *UserRepository) GetAll(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.data[id])
	}
	return users, nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *UserRepository) GetByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		user := r.data[id]
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return &user, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) Update(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[user.ID]; !ok {
		return nil, fmt.Errorf("user with id %d %w", user.ID, domain.ErrNotFound)
	}

	user.Roles = cloneRoles(user.Roles)
	r.data[user.ID] = user

	updated := user
	return &updated, nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return nil
	}
	delete(r.data, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneRoles(roles []domain.Role) []domain.Role {
	if roles == nil {
		return nil
	}
	out := make([]domain.Role, len(roles))
	copy(out, roles)
	return out
}
