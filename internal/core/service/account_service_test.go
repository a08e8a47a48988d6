package service

import (
	"context"
	"errors"
	"testing"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

func TestAccountService_Register_Success(t *testing.T) {
	f := newFixture(t)

	user := f.register(t, "alice", "alice@example.com", "password123")

	if user.ID == "" {
		t.Fatalf("expected non-empty id")
	}
	if user.PasswordHash == "password123" || !f.hasher.Verify("password123", user.PasswordHash) {
		t.Fatalf("expected password to be hashed")
	}
	if !user.IsActive || user.IsSuperuser {
		t.Fatalf("unexpected flags: active=%v super=%v", user.IsActive, user.IsSuperuser)
	}
	if user.RoleID != f.role(t, domain.RoleUser).ID {
		t.Fatalf("expected default role, got %s", user.RoleID)
	}
}

func TestAccountService_Create_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "password123")
	writes := f.users.writes

	_, err := f.accounts.Register(context.Background(), ports.RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "password123",
	})

	expectKind(t, err, domain.ErrUserAlreadyExists)
	if err.Error() != "user with this username already exists" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if f.users.writes != writes || len(f.users.users) != 1 {
		t.Fatalf("storage changed after failed create")
	}
}

func TestAccountService_Create_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "password123")

	_, err := f.accounts.Register(context.Background(), ports.RegisterInput{
		Username: "bob", Email: "alice@example.com", Password: "password123",
	})

	expectKind(t, err, domain.ErrUserAlreadyExists)
	if err.Error() != "user with this email already exists" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if len(f.users.users) != 1 {
		t.Fatalf("storage changed after failed create")
	}
}

func TestAccountService_Create_StorageConstraintBackstop(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "password123")
	racing := &racingUserRepo{stubUserRepo: f.users}
	svc := NewAccountService(racing, f.roles, f.hasher, f.accounts.log)

	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})
	expectKind(t, err, domain.ErrUserAlreadyExists)
}

// racingUserRepo pretends no user exists at check time.
type racingUserRepo struct {
	*stubUserRepo
}

func (r *racingUserRepo) Find(ctx context.Context, key domain.UserKey, value string) (*domain.User, error) {
	if key == domain.UserByUsername || key == domain.UserByEmail {
		return nil, nil
	}
	return r.stubUserRepo.Find(ctx, key, value)
}

func TestAccountService_Create_ExplicitRole(t *testing.T) {
	f := newFixture(t)
	admin := f.role(t, domain.RoleAdmin)

	user, err := f.accounts.Create(context.Background(), ports.CreateUserInput{
		Username: "root", Email: "root@example.com", Password: "password123",
		IsActive: true, IsSuperuser: true, RoleID: &admin.ID,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if user.RoleID != admin.ID || !user.IsSuperuser {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAccountService_Create_UnknownRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.accounts.Create(context.Background(), ports.CreateUserInput{
		Username: "bob", Email: "bob@example.com", Password: "password123", RoleID: ptr("missing"),
	})
	expectKind(t, err, domain.ErrRoleNotFound)
	if len(f.users.users) != 0 {
		t.Fatalf("user persisted despite missing role")
	}
}

func TestAccountService_Create_DefaultRoleMissing(t *testing.T) {
	f := newFixture(t)
	f.roles.roles = nil

	_, err := f.accounts.Create(context.Background(), ports.CreateUserInput{
		Username: "bob", Email: "bob@example.com", Password: "password123",
	})
	expectKind(t, err, domain.ErrRoleNotFound)
}

func TestAccountService_Update_PartialFields(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")

	updated, err := f.accounts.Update(context.Background(), alice, domain.UserPatch{FullName: ptr("Alice Liddell")})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.FullName != "Alice Liddell" || updated.Username != "alice" || updated.Email != "alice@example.com" {
		t.Fatalf("unexpected user after update: %+v", updated)
	}
	if updated.PasswordHash != alice.PasswordHash {
		t.Fatalf("password hash changed without password in patch")
	}
	if f.stored(t, alice.ID).FullName != "Alice Liddell" {
		t.Fatalf("update not persisted")
	}
}

func TestAccountService_Update_Password(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")

	if _, err := f.accounts.Update(context.Background(), alice, domain.UserPatch{Password: ptr("newpassword")}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stored := f.stored(t, alice.ID)
	if !f.hasher.Verify("newpassword", stored.PasswordHash) {
		t.Fatalf("new password does not verify")
	}
}

func TestAccountService_Update_ConflictLeavesRecord(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "password123")
	bob := f.register(t, "bob", "bob@example.com", "password123")

	_, err := f.accounts.Update(context.Background(), bob, domain.UserPatch{
		FullName: ptr("Bobby"),
		Email:    ptr("alice@example.com"),
	})
	expectKind(t, err, domain.ErrUserAlreadyExists)

	stored := f.stored(t, bob.ID)
	if stored.Email != "bob@example.com" || stored.FullName != "" {
		t.Fatalf("record modified despite conflict: %+v", stored)
	}
}

func TestAccountService_Update_SameValuesAreNotConflicts(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")

	if _, err := f.accounts.Update(context.Background(), alice, domain.UserPatch{
		Username: ptr("alice"),
		Email:    ptr("alice@example.com"),
	}); err != nil {
		t.Fatalf("expected no conflict against own values, got %v", err)
	}
}

func TestAccountService_Update_UnknownRole(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")

	_, err := f.accounts.Update(context.Background(), alice, domain.UserPatch{RoleID: ptr("missing")})
	expectKind(t, err, domain.ErrRoleNotFound)
	if f.stored(t, alice.ID).RoleID != alice.RoleID {
		t.Fatalf("role changed despite error")
	}
}

func TestAccountService_UpdateUser_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.accounts.UpdateUser(context.Background(), "missing", domain.UserPatch{FullName: ptr("x")})
	expectKind(t, err, domain.ErrUserNotFound)
}

func TestAccountService_UpdateMe(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")

	updated, err := f.accounts.UpdateMe(context.Background(), alice, ports.UpdateMeInput{Username: ptr("alice2")})
	if err != nil {
		t.Fatalf("UpdateMe returned error: %v", err)
	}
	if updated.Username != "alice2" {
		t.Fatalf("expected new username, got %s", updated.Username)
	}
	if _, err := f.auth.Authenticate(context.Background(), "alice2", "password123"); err != nil {
		t.Fatalf("cannot authenticate with new username: %v", err)
	}
}

func TestAccountService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")

	if err := f.accounts.ChangePassword(context.Background(), alice, "password123", "password456"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if _, err := f.auth.Authenticate(context.Background(), "alice", "password456"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, err := f.auth.Authenticate(context.Background(), "alice", "password123"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("old password still accepted")
	}
}

func TestAccountService_ChangePassword_WrongCurrent(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")

	err := f.accounts.ChangePassword(context.Background(), alice, "wrong-password", "password456")
	expectKind(t, err, domain.ErrInvalidPassword)
}

func TestAccountService_ChangePassword_SameAsCurrent(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")
	writes := f.users.writes

	err := f.accounts.ChangePassword(context.Background(), alice, "password123", "password123")
	expectKind(t, err, domain.ErrIncorrectPassword)
	if f.users.writes != writes {
		t.Fatalf("storage written on rejected password change")
	}
}

func TestAccountService_DeleteMe(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")

	if err := f.accounts.DeleteMe(context.Background(), alice); err != nil {
		t.Fatalf("DeleteMe returned error: %v", err)
	}
	if f.stored(t, alice.ID) != nil {
		t.Fatalf("user still present after delete")
	}
}

func TestAccountService_DeleteMe_Superuser(t *testing.T) {
	f := newFixture(t)
	root := f.register(t, "root", "root@example.com", "password123")
	root, _ = f.accounts.Update(context.Background(), root, domain.UserPatch{IsSuperuser: ptr(true)})

	err := f.accounts.DeleteMe(context.Background(), root)
	expectKind(t, err, domain.ErrCannotDeleteSuperuser)
	if f.stored(t, root.ID) == nil {
		t.Fatalf("superuser deleted")
	}
}

func TestAccountService_DeleteUser(t *testing.T) {
	f := newFixture(t)
	root := f.register(t, "root", "root@example.com", "password123")
	root, _ = f.accounts.Update(context.Background(), root, domain.UserPatch{IsSuperuser: ptr(true)})
	alice := f.register(t, "alice", "alice@example.com", "password123")

	if err := f.accounts.DeleteUser(context.Background(), root, alice.ID); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}
	if f.stored(t, alice.ID) != nil {
		t.Fatalf("target still present")
	}

	expectKind(t, f.accounts.DeleteUser(context.Background(), root, root.ID), domain.ErrCannotDeleteSuperuser)
	expectKind(t, f.accounts.DeleteUser(context.Background(), root, "missing"), domain.ErrUserNotFound)
}

func TestAccountService_Get(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "alice@example.com", "password123")
	bob := f.register(t, "bob", "bob@example.com", "password123")
	root := &domain.User{ID: "root", IsSuperuser: true}

	if u, err := f.accounts.Get(context.Background(), alice, alice.ID); err != nil || u.ID != alice.ID {
		t.Fatalf("self read failed: %v", err)
	}
	expectKind(t, getErr(f.accounts.Get(context.Background(), alice, bob.ID)), domain.ErrForbidden)
	if u, err := f.accounts.Get(context.Background(), root, bob.ID); err != nil || u.ID != bob.ID {
		t.Fatalf("superuser read failed: %v", err)
	}
	expectKind(t, getErr(f.accounts.Get(context.Background(), root, "missing")), domain.ErrUserNotFound)
}

func getErr(_ *domain.User, err error) error { return err }

func TestAccountService_List(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a", "b", "c"} {
		f.register(t, name, name+"@example.com", "password123")
	}

	page, err := f.accounts.List(context.Background(), ports.ListUsersInput{Skip: 1, Limit: 1})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if page.Count != 3 || len(page.Items) != 1 || page.Items[0].Username != "b" {
		t.Fatalf("unexpected page: count=%d items=%d", page.Count, len(page.Items))
	}

	all, _ := f.accounts.List(context.Background(), ports.ListUsersInput{Limit: 1000})
	if len(all.Items) != 3 {
		t.Fatalf("expected all users, got %d", len(all.Items))
	}
}

func TestAccountService_EndToEnd_RegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)

	user, err := f.accounts.Register(context.Background(), ports.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected id")
	}

	if _, err := f.auth.Authenticate(context.Background(), "alice", "password123"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	_, err = f.auth.Authenticate(context.Background(), "alice", "wrong")
	expectKind(t, err, domain.ErrNotAuthenticated)
}
