package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/accounthub/user-management/internal/core/domain"
	"github.com/accounthub/user-management/internal/core/password"
	"github.com/accounthub/user-management/internal/core/ports"
	"github.com/accounthub/user-management/internal/metrics"
)

// UserService enforces the business rules around user identity and role
// membership. It is the sole writer of user state; everything it cannot
// decide itself is delegated to the two repositories.
type UserService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	logger zerolog.Logger
}

func NewUserService(users ports.UserRepository, roles ports.RoleRepository, logger zerolog.Logger) *UserService {
	return &UserService{users: users, roles: roles, logger: logger}
}

// CreateUser registers a new, unverified user holding exactly the default
// role. Username and email must be globally unique; on a record colliding on
// both fields the username is reported.
func (s *UserService) CreateUser(ctx context.Context, input ports.CreateUserInput) (*domain.User, error) {
	defaultRole, err := s.roles.GetByKey(ctx, domain.DefaultRoleKey)
	if err != nil {
		s.logger.Error().Err(err).Str("role_key", domain.DefaultRoleKey).Msg("failed to resolve default role")
		return nil, err
	}
	if defaultRole == nil {
		s.logger.Error().Str("role_key", domain.DefaultRoleKey).Msg("default role missing, seed step did not run")
		return nil, fmt.Errorf("default role %w", domain.ErrNotFound)
	}

	existing, err := s.users.GetByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("username", input.Username).Msg("duplicate pre-check failed")
		return nil, err
	}
	if existing != nil {
		if existing.Username == input.Username {
			metrics.DuplicateRejectionsTotal.WithLabelValues("username").Inc()
			return nil, fmt.Errorf("user with username %q %w", input.Username, domain.ErrDuplicate)
		}
		metrics.DuplicateRejectionsTotal.WithLabelValues("email").Inc()
		return nil, fmt.Errorf("user with email %q %w", input.Email, domain.ErrDuplicate)
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	user := domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		IsVerified:   false,
		Roles:        []domain.Role{*defaultRole},
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, err
	}

	metrics.UsersCreatedTotal.Inc()
	s.logger.Info().Int64("user_id", created.ID).Str("username", created.Username).Msg("user created")
	return created, nil
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to retrieve all users")
		return nil, err
	}
	return users, nil
}

// GetUserByID returns (nil, nil) when no user matches. Absence is a valid
// lookup outcome, unlike in UpdateUser and DeleteUser.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to retrieve user")
		return nil, err
	}
	return user, nil
}

// UpdateUser applies the provided fields to the stored record and replaces it
// wholesale. Only present fields are touched; a field equal to the current
// value skips its uniqueness check.
func (s *UserService) UpdateUser(ctx context.Context, id int64, input ports.UpdateUserInput) (*domain.User, error) {
	existing, err := s.requireUser(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing

	if input.Username != nil {
		if err := s.checkUsernameFree(ctx, *input.Username, existing.Username); err != nil {
			return nil, err
		}
		updated.Username = *input.Username
	}

	if input.Email != nil {
		if err := s.checkEmailFree(ctx, *input.Email, existing.Email); err != nil {
			return nil, err
		}
		updated.Email = *input.Email
	}

	if input.Password != nil {
		hash, err := password.Hash(*input.Password)
		if err != nil {
			s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to hash password")
			return nil, err
		}
		updated.PasswordHash = hash
	}

	if input.IsVerified != nil {
		updated.IsVerified = *input.IsVerified
	}

	if input.RoleIDs != nil {
		roles, err := s.resolveRoles(ctx, input.RoleIDs)
		if err != nil {
			return nil, err
		}
		updated.Roles = roles
	}

	result, err := s.users.Update(ctx, updated)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to update user")
		return nil, err
	}

	metrics.UserMutationsTotal.WithLabelValues("update").Inc()
	return result, nil
}

// DeleteUser hard-deletes the user and its role associations. Deleting a
// non-existent user is an error, not a no-op.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.requireUser(ctx, id); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to delete user")
		return err
	}

	metrics.UserMutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

func (s *UserService) requireUser(ctx context.Context, id int64) (*domain.User, error) {
	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to load user")
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("user with id %d %w", id, domain.ErrNotFound)
	}
	return existing, nil
}

func (s *UserService) checkUsernameFree(ctx context.Context, username, current string) error {
	if username == current {
		return nil
	}
	duplicate, err := s.users.GetByUsernameOrEmail(ctx, username, "")
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("username uniqueness check failed")
		return err
	}
	if duplicate != nil {
		metrics.DuplicateRejectionsTotal.WithLabelValues("username").Inc()
		return fmt.Errorf("username %q %w", username, domain.ErrDuplicate)
	}
	return nil
}

func (s *UserService) checkEmailFree(ctx context.Context, email, current string) error {
	if email == current {
		return nil
	}
	duplicate, err := s.users.GetByUsernameOrEmail(ctx, "", email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("email uniqueness check failed")
		return err
	}
	if duplicate != nil {
		metrics.DuplicateRejectionsTotal.WithLabelValues("email").Inc()
		return fmt.Errorf("email %q %w", email, domain.ErrDuplicate)
	}
	return nil
}

// resolveRoles fetches the full requested role set. Partial matches are
// rejected: every missing ID is reported, in request order.
func (s *UserService) resolveRoles(ctx context.Context, roleIDs []int64) ([]domain.Role, error) {
	if len(roleIDs) == 0 {
		return nil, fmt.Errorf("user must have at least one role: %w", domain.ErrValidation)
	}

	roles, err := s.roles.GetByIDs(ctx, roleIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to resolve roles")
		return nil, err
	}

	found := make(map[int64]struct{}, len(roles))
	for _, r := range roles {
		found[r.ID] = struct{}{}
	}
	var missing []string
	for _, id := range roleIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, strconv.FormatInt(id, 10))
		}
	}
	if len(missing) > 0 {
		s.logger.Error().Strs("missing_role_ids", missing).Msg("requested roles not found")
		return nil, fmt.Errorf("role(s) with id(s) %s %w", strings.Join(missing, ", "), domain.ErrNotFound)
	}

	return roles, nil
}
