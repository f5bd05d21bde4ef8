package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/accounthub/user-management/internal/core/domain"
	"github.com/accounthub/user-management/internal/core/ports"
	"github.com/accounthub/user-management/internal/metrics"
)

const defaultCacheTTL = 5 * time.Minute

// cachedUser is the stored representation. The password hash travels with it
// so a cache hit behaves exactly like a repository read; the key space is
// internal and never exposed through the API.
type cachedUser struct {
	ID           int64         `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"password_hash"`
	IsVerified   bool          `json:"is_verified"`
	Roles        []domain.Role `json:"roles"`
}

// CachedUserRepository decorates a UserRepository with a read-through Redis
// cache on GetByID. Writes invalidate the cached entry before delegating, so
// a failed write never leaves a stale record behind. Cache failures are
// logged and fallen through; Redis being down degrades to plain reads.
type CachedUserRepository struct {
	next   ports.UserRepository
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewCachedUserRepository(next ports.UserRepository, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedUserRepository{next: next, client: client, ttl: ttl, log: log}
}

func (r *CachedUserRepository) key(id int64) string {
	return fmt.Sprintf("user:id:%d", id)
}

func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if unmarshalErr := json.Unmarshal(raw, &cu); unmarshalErr == nil {
			metrics.UserCacheTotal.WithLabelValues("hit").Inc()
			return &domain.User{
				ID:           cu.ID,
				Username:     cu.Username,
				Email:        cu.Email,
				PasswordHash: cu.PasswordHash,
				IsVerified:   cu.IsVerified,
				Roles:        cu.Roles,
			}, nil
		}
		r.log.Warn().Int64("user_id", id).Msg("corrupt cache entry, rereading from storage")
	case !errors.Is(err, redis.Nil):
		r.log.Warn().Err(err).Int64("user_id", id).Msg("cache read failed, falling back to storage")
	}

	metrics.UserCacheTotal.WithLabelValues("miss").Inc()
	user, err := r.next.GetByID(ctx, id)
	if err != nil || user == nil {
		return user, err
	}
	r.store(ctx, user)
	return user, nil
}

func (r *CachedUserRepository) store(ctx context.Context, user *domain.User) {
	raw, err := json.Marshal(cachedUser{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsVerified:   user.IsVerified,
		Roles:        user.Roles,
	})
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.key(user.ID), raw, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Int64("user_id", user.ID).Msg("cache write failed")
	}
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id int64) {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		r.log.Warn().Err(err).Int64("user_id", id).Msg("cache invalidation failed")
	}
}

func (r *CachedUserRepository) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	return r.next.Create(ctx, user)
}

func (r *CachedUserRepository) GetAll(ctx context.Context) ([]domain.User, error) {
	return r.next.GetAll(ctx)
}

func (r *CachedUserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	return r.next.GetByUsernameOrEmail(ctx, username, email)
}

func (r *CachedUserRepository) Update(ctx context.Context, user domain.User) (*domain.User, error) {
	r.invalidate(ctx, user.ID)
	return r.next.Update(ctx, user)
}

func (r *CachedUserRepository) Delete(ctx context.Context, id int64) error {
	r.invalidate(ctx, id)
	return r.next.Delete(ctx, id)
}
