package memory

import (
	"context"
	"sync"

	"github.com/accounthub/user-management/internal/core/domain"
)

// RoleRepository holds a fixed role set. The default role is seeded at
// construction, mirroring the out-of-band provisioning of durable storage.
type RoleRepository struct {
	mu     sync.RWMutex
	nextID int64
	order  []int64
	data   map[int64]domain.Role
}

func NewRoleRepository() *RoleRepository {
	r := &RoleRepository{
		nextID: 1,
		data:   make(map[int64]domain.Role),
	}
	r.AddRole(domain.Role{Key: domain.DefaultRoleKey, Name: domain.DefaultRoleName})
	return r
}

// AddRole registers a role and returns it with its assigned ID. Exposed for
// test fixtures; durable storage provisions roles out-of-band.
func (r *RoleRepository) AddRole(role domain.Role) domain.Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	role.ID = r.nextID
	r.nextID++
	r.data[role.ID] = role
	r.order = append(r.order, role.ID)
	return role
}

func (r *RoleRepository) GetByKey(_ context.Context, key string) (*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		role := r.data[id]
		if role.Key == key {
			return &role, nil
		}
	}
	return nil, nil
}

func (r *RoleRepository) GetByIDs(_ context.Context, ids []int64) ([]domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]domain.Role, 0, len(ids))
	for _, orderedID := range r.order {
		for _, id := range ids {
			if orderedID == id {
				roles = append(roles, r.data[orderedID])
				break
			}
		}
	}
	return roles, nil
}
