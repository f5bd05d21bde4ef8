package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accounthub/user-management/internal/core/domain"
)

// RoleRepository reads roles. Writes happen out-of-band (seeding, admin
// tooling), never through this type.
type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) GetByKey(ctx context.Context, key string) (*domain.Role, error) {
	var role domain.Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, key, name FROM roles WHERE key = $1`, key,
	).Scan(&role.ID, &role.Key, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role by key: %w", err)
	}
	return &role, nil
}

func (r *RoleRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Role, error) {
	if len(ids) == 0 {
		return []domain.Role{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, key, name FROM roles WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("get roles by ids: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0, len(ids))
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Key, &role.Name); err != nil {
			return nil, fmt.Errorf("get roles by ids: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get roles by ids: %w", err)
	}
	return roles, nil
}
