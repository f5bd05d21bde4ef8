package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accounthub/user-management/internal/core/domain"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// UserRepository persists users across the users and user_roles tables.
// Updates are whole-record replaces: the row and its role associations are
// rewritten from the given value.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create user: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, is_verified)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.IsVerified,
	).Scan(&user.ID)
	if err != nil {
		return nil, translateUnique(err, fmt.Errorf("create user: %w", err))
	}

	if err := replaceRoleLinks(ctx, tx, user.ID, user.Roles); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create user: commit: %w", err)
	}

	created := user
	return &created, nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.is_verified,
		       ro.id, ro.key, ro.name
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id
		ORDER BY u.id, ur.position`)
	if err != nil {
		return nil, fmt.Errorf("get all users: %w", err)
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("get all users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `u.id = $1`, id)
}

func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	// Empty strings never match a stored value: username and email are
	// non-empty by construction, so a disabled side is inert.
	return r.getOne(ctx, `(u.username = $1 OR u.email = $2)`, username, email)
}

func (r *UserRepository) getOne(ctx context.Context, where string, args ...any) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.is_verified,
		       ro.id, ro.key, ro.name
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id
		WHERE `+where+`
		ORDER BY u.id, ur.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *UserRepository) Update(ctx context.Context, user domain.User) (*domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("update user: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`UPDATE users
		 SET username = $1, email = $2, password_hash = $3, is_verified = $4
		 WHERE id = $5
		 RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.IsVerified, user.ID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with id %d %w", user.ID, domain.ErrNotFound)
		}
		return nil, translateUnique(err, fmt.Errorf("update user: %w", err))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, user.ID); err != nil {
		return nil, fmt.Errorf("update user: clear roles: %w", err)
	}
	if err := replaceRoleLinks(ctx, tx, user.ID, user.Roles); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("update user: commit: %w", err)
	}

	updated := user
	return &updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	// Role associations go with the user via ON DELETE CASCADE. Unknown ids
	// are a no-op; the service checks existence beforehand.
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func replaceRoleLinks(ctx context.Context, tx pgx.Tx, userID int64, roles []domain.Role) error {
	for i, role := range roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id, position) VALUES ($1, $2, $3)`,
			userID, role.ID, i,
		); err != nil {
			return fmt.Errorf("link role %d: %w", role.ID, err)
		}
	}
	return nil
}

// collectUsers folds joined user/role rows into users, preserving row order.
func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	var (
		users []domain.User
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			u        domain.User
			roleID   *int64
			roleKey  *string
			roleName *string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified,
			&roleID, &roleKey, &roleName); err != nil {
			return nil, err
		}

		pos, seen := index[u.ID]
		if !seen {
			pos = len(users)
			index[u.ID] = pos
			users = append(users, u)
		}
		if roleID != nil {
			users[pos].Roles = append(users[pos].Roles, domain.Role{ID: *roleID, Key: *roleKey, Name: *roleName})
		}
	}
	return users, rows.Err()
}

// translateUnique surfaces a unique-constraint hit as the domain's duplicate
// error, naming the violated field. This is the authoritative guard for
// concurrent creates that both pass the service's pre-check.
func translateUnique(err error, fallback error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return fallback
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return fmt.Errorf("user with that username %w", domain.ErrDuplicate)
	case "users_email_key":
		return fmt.Errorf("user with that email %w", domain.ErrDuplicate)
	default:
		return fmt.Errorf("user %w", domain.ErrDuplicate)
	}
}
