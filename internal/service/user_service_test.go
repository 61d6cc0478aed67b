package service_test

import (
	"context"
	"testing"

	"github.com/field-worksheet-api/internal/models"
)

func TestBootstrap_SeedsDefaultAccounts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.svc.User.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if len(env.users.Users) != 2 {
		t.Fatalf("Expected 2 seeded accounts, got %d", len(env.users.Users))
	}

	admin, err := env.svc.User.Authenticate(ctx, "Admin", "admin123")
	if err != nil || admin == nil {
		t.Fatalf("Admin seed should authenticate: user=%v err=%v", admin, err)
	}
	if admin.Role != models.RoleAdministrator || !admin.IsAdministrator() {
		t.Errorf("Admin seed has wrong role %q", admin.Role)
	}

	assistant, err := env.svc.User.Authenticate(ctx, "AssAdm", "adm123")
	if err != nil || assistant == nil {
		t.Fatalf("Assistant seed should authenticate: user=%v err=%v", assistant, err)
	}
	if !assistant.CanOperate() || assistant.IsAdministrator() {
		t.Errorf("Assistant seed has wrong role %q", assistant.Role)
	}

	// a second bootstrap is a no-op
	if err := env.svc.User.Bootstrap(ctx); err != nil {
		t.Fatalf("Second bootstrap failed: %v", err)
	}
	if len(env.users.Users) != 2 {
		t.Errorf("Bootstrap must not reseed a populated store, got %d accounts", len(env.users.Users))
	}
}

func TestAuthenticate_RejectsBadCredentials(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.svc.User.Bootstrap(ctx)

	user, err := env.svc.User.Authenticate(ctx, "Admin", "wrong")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user != nil {
		t.Error("Wrong password should not authenticate")
	}

	user, err = env.svc.User.Authenticate(ctx, "nobody", "admin123")
	if err != nil || user != nil {
		t.Errorf("Unknown username should return nil, nil; got %v, %v", user, err)
	}
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user, err := env.svc.User.Create(ctx, "joao", "secret1", "João Silva", models.RoleTechnician)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.ID == 0 {
		t.Error("Created account should have an id")
	}
	if user.PasswordHash == "secret1" || user.PasswordHash == "" {
		t.Error("Password must be stored hashed")
	}

	if _, err := env.svc.User.Create(ctx, "joao", "secret2", "Outro João", models.RoleTechnician); models.KindOf(err) != models.KindDuplicateUsername {
		t.Errorf("Expected duplicate username error, got %v", err)
	}
	if _, err := env.svc.User.Create(ctx, "ab", "secret1", "Nome", models.RoleTechnician); models.KindOf(err) != models.KindValidation {
		t.Errorf("Expected validation error for short username, got %v", err)
	}
	if _, err := env.svc.User.Create(ctx, "maria", "", "Maria", models.RoleTechnician); models.KindOf(err) != models.KindValidation {
		t.Errorf("Expected validation error for empty password, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created, err := env.svc.User.Create(ctx, "joao", "secret1", "João", models.RoleTechnician)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := env.svc.User.Update(ctx, created.ID, "João Silva", models.RoleAssistant)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Nome != "João Silva" || updated.Role != models.RoleAssistant {
		t.Errorf("Profile not updated: %+v", updated)
	}

	if _, err := env.svc.User.Update(ctx, 999, "Nome", models.RoleTechnician); models.KindOf(err) != models.KindNotFound {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created, err := env.svc.User.Create(ctx, "joao", "secret1", "João", models.RoleTechnician)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := env.svc.User.ChangePassword(ctx, created.ID, "newpass1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	auth, err := env.svc.User.Authenticate(ctx, "joao", "newpass1")
	if err != nil || auth == nil {
		t.Errorf("New password should authenticate: %v, %v", auth, err)
	}
	if auth, _ := env.svc.User.Authenticate(ctx, "joao", "secret1"); auth != nil {
		t.Error("Old password should no longer authenticate")
	}

	if err := env.svc.User.ChangePassword(ctx, created.ID, "123"); models.KindOf(err) != models.KindValidation {
		t.Errorf("Expected validation error for short password, got %v", err)
	}
	if err := env.svc.User.ChangePassword(ctx, 999, "newpass1"); models.KindOf(err) != models.KindNotFound {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestDeleteUser_ProtectsBootstrapAdmin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.svc.User.Bootstrap(ctx)

	if err := env.svc.User.Delete(ctx, models.ProtectedUserID); models.KindOf(err) != models.KindProtectedAccount {
		t.Fatalf("Expected protected account error, got %v", err)
	}
	if len(env.users.Users) != 2 {
		t.Error("Admin must survive the delete attempt")
	}

	created, _ := env.svc.User.Create(ctx, "joao", "secret1", "João", models.RoleTechnician)
	if err := env.svc.User.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := env.svc.User.Delete(ctx, created.ID); models.KindOf(err) != models.KindNotFound {
		t.Errorf("Expected not found for repeated delete, got %v", err)
	}
}

func TestUpdateUser_AdminKeepsRole(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.svc.User.Bootstrap(ctx)

	if _, err := env.svc.User.Update(ctx, models.ProtectedUserID, "Administrador", models.RoleTechnician); models.KindOf(err) != models.KindValidation {
		t.Errorf("Expected validation error when demoting the bootstrap Admin, got %v", err)
	}
}
