package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/accounthub/user-management/internal/core/domain"
	"github.com/accounthub/user-management/internal/core/password"
	"github.com/accounthub/user-management/internal/core/ports"
	"github.com/accounthub/user-management/internal/infrastructure/db/memory"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newService() (*UserService, *memory.UserRepository, *memory.RoleRepository) {
	users := memory.NewUserRepository()
	roles := memory.NewRoleRepository()
	return NewUserService(users, roles, discardLogger), users, roles
}

func mustCreate(t *testing.T, svc *UserService, username, email string) *domain.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), ports.CreateUserInput{
		Username: username,
		Email:    email,
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// spyUserRepo wraps a repository and counts lookup calls, so tests can assert
// that no-op field updates skip the uniqueness check.
type spyUserRepo struct {
	ports.UserRepository
	lookupCalls int
}

func (s *spyUserRepo) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	s.lookupCalls++
	return s.UserRepository.GetByUsernameOrEmail(ctx, username, email)
}

// failingUserRepo returns a fixed error from every operation, for asserting
// that infrastructure errors pass through the service unchanged.
type failingUserRepo struct {
	err error
}

func (r *failingUserRepo) Create(context.Context, domain.User) (*domain.User, error) {
	return nil, r.err
}
func (r *failingUserRepo) GetAll(context.Context) ([]domain.User, error) { return nil, r.err }
func (r *failingUserRepo) GetByID(context.Context, int64) (*domain.User, error) {
	return nil, r.err
}
func (r *failingUserRepo) GetByUsernameOrEmail(context.Context, string, string) (*domain.User, error) {
	return nil, r.err
}
func (r *failingUserRepo) Update(context.Context, domain.User) (*domain.User, error) {
	return nil, r.err
}
func (r *failingUserRepo) Delete(context.Context, int64) error { return r.err }

// ---------------------------------------------------------------------------
// CreateUser
// ---------------------------------------------------------------------------

func TestCreateUser_Success(t *testing.T) {
	svc, _, _ := newService()

	user := mustCreate(t, svc, "alice", "alice@example.com")

	if user.ID == 0 {
		t.Error("expected a persisted ID")
	}
	if user.IsVerified {
		t.Error("new users must start unverified")
	}
	if len(user.Roles) != 1 || user.Roles[0].Key != domain.DefaultRoleKey {
		t.Errorf("expected exactly the default role, got %+v", user.Roles)
	}
	if user.PasswordHash == "secret" {
		t.Error("password hash must not equal the plaintext password")
	}
	if !password.Verify("secret", user.PasswordHash) {
		t.Error("stored hash must verify against the original password")
	}
}

func TestCreateUser_DefaultRoleMissing(t *testing.T) {
	users := memory.NewUserRepository()
	roles := &memory.RoleRepository{} // empty, no seed
	svc := NewUserService(users, roles, discardLogger)

	_, err := svc.CreateUser(context.Background(), ports.CreateUserInput{
		Username: "alice", Email: "alice@example.com", Password: "secret",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing default role, got %v", err)
	}
	if !strings.Contains(err.Error(), "default role") {
		t.Errorf("error must identify the default role, got %q", err)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	svc, _, _ := newService()
	mustCreate(t, svc, "alice", "alice@example.com")

	// Same username, different email: the username is the collision.
	_, err := svc.CreateUser(context.Background(), ports.CreateUserInput{
		Username: "alice", Email: "carol@example.com", Password: "secret",
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if !strings.Contains(err.Error(), `"alice"`) {
		t.Errorf("error must cite the username, got %q", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc, _, _ := newService()
	mustCreate(t, svc, "alice", "alice@example.com")

	_, err := svc.CreateUser(context.Background(), ports.CreateUserInput{
		Username: "bob", Email: "alice@example.com", Password: "secret",
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if !strings.Contains(err.Error(), `"alice@example.com"`) {
		t.Errorf("error must cite the email, got %q", err)
	}
}

func TestCreateUser_UsernameReportedBeforeEmail(t *testing.T) {
	// When one existing record collides on both fields, the username wins.
	// Observed behaviour carried over from the tie-break rule; product has
	// not confirmed it as intentional.
	svc, _, _ := newService()
	mustCreate(t, svc, "alice", "alice@example.com")

	_, err := svc.CreateUser(context.Background(), ports.CreateUserInput{
		Username: "alice", Email: "alice@example.com", Password: "secret",
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if !strings.Contains(err.Error(), "username") {
		t.Errorf("double collision must report the username, got %q", err)
	}
}

func TestCreateUser_RepoErrorPassesThrough(t *testing.T) {
	infraErr := errors.New("connection refused")
	svc := NewUserService(&failingUserRepo{err: infraErr}, memory.NewRoleRepository(), discardLogger)

	_, err := svc.CreateUser(context.Background(), ports.CreateUserInput{
		Username: "alice", Email: "alice@example.com", Password: "secret",
	})
	if !errors.Is(err, infraErr) {
		t.Fatalf("infrastructure error must pass through unchanged, got %v", err)
	}
	if errors.Is(err, domain.ErrDuplicate) || errors.Is(err, domain.ErrNotFound) {
		t.Error("infrastructure error must not be translated into the business taxonomy")
	}
}

// ---------------------------------------------------------------------------
// GetAllUsers / GetUserByID
// ---------------------------------------------------------------------------

func TestGetAllUsers_InsertionOrder(t *testing.T) {
	svc, _, _ := newService()
	mustCreate(t, svc, "alice", "alice@example.com")
	mustCreate(t, svc, "bob", "bob@example.com")
	mustCreate(t, svc, "carol", "carol@example.com")

	users, err := svc.GetAllUsers(context.Background())
	if err != nil {
		t.Fatalf("GetAllUsers: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i, want := range []string{"alice", "bob", "carol"} {
		if users[i].Username != want {
			t.Errorf("users[%d] = %q, want %q", i, users[i].Username, want)
		}
	}
}

func TestGetUserByID_AbsentIsNotAnError(t *testing.T) {
	svc, _, _ := newService()

	user, err := svc.GetUserByID(context.Background(), 404)
	if err != nil {
		t.Fatalf("lookup of a missing user must not error, got %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestGetUserByID_RepoErrorPassesThrough(t *testing.T) {
	infraErr := errors.New("timeout")
	svc := NewUserService(&failingUserRepo{err: infraErr}, memory.NewRoleRepository(), discardLogger)

	_, err := svc.GetUserByID(context.Background(), 1)
	if !errors.Is(err, infraErr) {
		t.Fatalf("expected pass-through error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// UpdateUser
// ---------------------------------------------------------------------------

func TestUpdateUser_NotFound(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.UpdateUser(context.Background(), 42, ports.UpdateUserInput{
		Username: strPtr("ghost"),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("error must name the id, got %q", err)
	}
}

func TestUpdateUser_PartialFields(t *testing.T) {
	svc, _, _ := newService()
	created := mustCreate(t, svc, "alice", "alice@example.com")

	updated, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		Email: strPtr("alice@corp.example.com"),
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Email != "alice@corp.example.com" {
		t.Errorf("email not applied: %q", updated.Email)
	}
	// Absent fields stay untouched.
	if updated.Username != "alice" {
		t.Errorf("username must be unchanged, got %q", updated.Username)
	}
	if updated.PasswordHash != created.PasswordHash {
		t.Error("password hash must be unchanged when no password is provided")
	}
	if updated.IsVerified != created.IsVerified {
		t.Error("is_verified must be unchanged when absent")
	}
	if len(updated.Roles) != 1 || updated.Roles[0].Key != domain.DefaultRoleKey {
		t.Errorf("roles must be unchanged, got %+v", updated.Roles)
	}
}

func TestUpdateUser_DuplicateUsername(t *testing.T) {
	svc, _, _ := newService()
	mustCreate(t, svc, "alice", "alice@example.com")
	bob := mustCreate(t, svc, "bob", "bob@example.com")

	_, err := svc.UpdateUser(context.Background(), bob.ID, ports.UpdateUserInput{
		Username: strPtr("alice"),
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if !strings.Contains(err.Error(), `"alice"`) {
		t.Errorf("error must cite the username, got %q", err)
	}
}

func TestUpdateUser_DuplicateEmail(t *testing.T) {
	svc, _, _ := newService()
	mustCreate(t, svc, "alice", "alice@example.com")
	bob := mustCreate(t, svc, "bob", "bob@example.com")

	_, err := svc.UpdateUser(context.Background(), bob.ID, ports.UpdateUserInput{
		Email: strPtr("alice@example.com"),
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if !strings.Contains(err.Error(), `"alice@example.com"`) {
		t.Errorf("error must cite the email, got %q", err)
	}
}

func TestUpdateUser_NoOpFieldSkipsUniquenessCheck(t *testing.T) {
	users := memory.NewUserRepository()
	roles := memory.NewRoleRepository()
	spy := &spyUserRepo{UserRepository: users}
	svc := NewUserService(spy, roles, discardLogger)

	created := mustCreate(t, svc, "alice", "alice@example.com")
	spy.lookupCalls = 0

	// Re-submitting the current values must not hit the uniqueness lookup.
	_, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		Username: strPtr("alice"),
		Email:    strPtr("alice@example.com"),
	})
	if err != nil {
		t.Fatalf("no-op update must succeed, got %v", err)
	}
	if spy.lookupCalls != 0 {
		t.Errorf("expected 0 uniqueness lookups for no-op fields, got %d", spy.lookupCalls)
	}
}

func TestUpdateUser_EmptyRoleIDs(t *testing.T) {
	svc, _, _ := newService()
	created := mustCreate(t, svc, "alice", "alice@example.com")

	_, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		RoleIDs: []int64{},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty role set, got %v", err)
	}
	if !strings.Contains(err.Error(), "at least one role") {
		t.Errorf("error must explain the rule, got %q", err)
	}
}

func TestUpdateUser_MissingRoleIDsListed(t *testing.T) {
	svc, _, roles := newService()
	admin := roles.AddRole(domain.Role{Key: "admin", Name: "Administrator"})
	created := mustCreate(t, svc, "alice", "alice@example.com")

	_, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		RoleIDs: []int64{admin.ID, 77, 99},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unresolvable roles, got %v", err)
	}
	if !strings.Contains(err.Error(), "77, 99") {
		t.Errorf("error must list exactly the missing ids in request order, got %q", err)
	}
	if strings.Contains(err.Error(), strconv.FormatInt(admin.ID, 10)+",") {
		t.Errorf("error must not list resolvable ids, got %q", err)
	}
}

func TestUpdateUser_ReplacesRoles(t *testing.T) {
	svc, _, roles := newService()
	admin := roles.AddRole(domain.Role{Key: "admin", Name: "Administrator"})
	auditor := roles.AddRole(domain.Role{Key: "auditor", Name: "Auditor"})
	created := mustCreate(t, svc, "alice", "alice@example.com")

	updated, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		RoleIDs: []int64{admin.ID, auditor.ID},
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if len(updated.Roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(updated.Roles))
	}
	if updated.Roles[0].Key != "admin" || updated.Roles[1].Key != "auditor" {
		t.Errorf("unexpected role set: %+v", updated.Roles)
	}
}

func TestUpdateUser_DuplicateRoleIDsCollapse(t *testing.T) {
	svc, _, roles := newService()
	admin := roles.AddRole(domain.Role{Key: "admin", Name: "Administrator"})
	created := mustCreate(t, svc, "alice", "alice@example.com")

	updated, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		RoleIDs: []int64{admin.ID, admin.ID},
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if len(updated.Roles) != 1 || updated.Roles[0].Key != "admin" {
		t.Errorf("repeated ids must collapse to one association, got %+v", updated.Roles)
	}
}

func TestUpdateUser_VerifiedTransition(t *testing.T) {
	svc, _, _ := newService()
	created := mustCreate(t, svc, "alice", "alice@example.com")

	updated, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		IsVerified: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if !updated.IsVerified {
		t.Error("explicit is_verified=true must be applied verbatim")
	}

	// And back: the transition is driven purely by the payload.
	reverted, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		IsVerified: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if reverted.IsVerified {
		t.Error("explicit is_verified=false must be applied verbatim")
	}
}

func TestUpdateUser_RehashesPassword(t *testing.T) {
	svc, _, _ := newService()
	created := mustCreate(t, svc, "alice", "alice@example.com")

	updated, err := svc.UpdateUser(context.Background(), created.ID, ports.UpdateUserInput{
		Password: strPtr("changed"),
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.PasswordHash == created.PasswordHash {
		t.Error("password update must replace the stored hash")
	}
	if updated.PasswordHash == "changed" {
		t.Error("plaintext must never be stored")
	}
	if !password.Verify("changed", updated.PasswordHash) {
		t.Error("new hash must verify against the new password")
	}
}

func TestUpdateUser_Idempotent(t *testing.T) {
	svc, _, roles := newService()
	admin := roles.AddRole(domain.Role{Key: "admin", Name: "Administrator"})
	created := mustCreate(t, svc, "alice", "alice@example.com")

	input := ports.UpdateUserInput{
		Username:   strPtr("alicia"),
		Email:      strPtr("alicia@example.com"),
		Password:   strPtr("rotated"),
		IsVerified: boolPtr(true),
		RoleIDs:    []int64{admin.ID},
	}

	first, err := svc.UpdateUser(context.Background(), created.ID, input)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := svc.UpdateUser(context.Background(), created.ID, input)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	if first.Username != second.Username || first.Email != second.Email {
		t.Error("repeating the same payload must yield the same identity fields")
	}
	if first.IsVerified != second.IsVerified {
		t.Error("repeating the same payload must yield the same verified flag")
	}
	if len(first.Roles) != len(second.Roles) || first.Roles[0].ID != second.Roles[0].ID {
		t.Error("repeating the same payload must yield the same role set")
	}
	// Hashes differ by design: each call draws a fresh salt.
	if first.PasswordHash == second.PasswordHash {
		t.Error("re-hashing the same password must produce a different salt")
	}
}

func TestUpdateUser_RepoErrorPassesThrough(t *testing.T) {
	infraErr := errors.New("deadlock detected")
	svc := NewUserService(&failingUserRepo{err: infraErr}, memory.NewRoleRepository(), discardLogger)

	_, err := svc.UpdateUser(context.Background(), 1, ports.UpdateUserInput{})
	if !errors.Is(err, infraErr) {
		t.Fatalf("expected pass-through error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// DeleteUser
// ---------------------------------------------------------------------------

func TestDeleteUser_NotFound(t *testing.T) {
	svc, _, _ := newService()

	err := svc.DeleteUser(context.Background(), 42)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("error must name the id, got %q", err)
	}
}

func TestDeleteUser_Success(t *testing.T) {
	svc, _, _ := newService()
	created := mustCreate(t, svc, "alice", "alice@example.com")

	if err := svc.DeleteUser(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	user, err := svc.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID after delete: %v", err)
	}
	if user != nil {
		t.Error("deleted user must be absent")
	}
}

// ---------------------------------------------------------------------------
// End-to-end scenario
// ---------------------------------------------------------------------------

func TestUserLifecycleScenario(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	alice := mustCreate(t, svc, "alice", "alice@x.com")
	bob := mustCreate(t, svc, "bob", "bob@x.com")

	if alice.ID == bob.ID {
		t.Fatal("distinct users must receive distinct ids")
	}
	for _, u := range []*domain.User{alice, bob} {
		if len(u.Roles) != 1 || u.Roles[0].Key != domain.DefaultRoleKey {
			t.Fatalf("%s must hold exactly the default role, got %+v", u.Username, u.Roles)
		}
	}

	// Username collision on create.
	_, err := svc.CreateUser(ctx, ports.CreateUserInput{
		Username: "alice", Email: "carol@x.com", Password: "secret",
	})
	if !errors.Is(err, domain.ErrDuplicate) || !strings.Contains(err.Error(), `"alice"`) {
		t.Fatalf("expected duplicate citing alice, got %v", err)
	}

	// Email collision on update.
	_, err = svc.UpdateUser(ctx, bob.ID, ports.UpdateUserInput{Email: strPtr("alice@x.com")})
	if !errors.Is(err, domain.ErrDuplicate) || !strings.Contains(err.Error(), `"alice@x.com"`) {
		t.Fatalf("expected duplicate citing alice@x.com, got %v", err)
	}

	// Delete alice, lookup is absent, second delete errors.
	if err := svc.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("delete alice: %v", err)
	}
	gone, err := svc.GetUserByID(ctx, alice.ID)
	if err != nil || gone != nil {
		t.Fatalf("expected absent user with no error, got %+v / %v", gone, err)
	}
	if err := svc.DeleteUser(ctx, alice.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete must fail with ErrNotFound, got %v", err)
	}
}
