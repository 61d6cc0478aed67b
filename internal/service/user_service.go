package service

import (
	"context"
	"strings"

	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/repository"
	"github.com/field-worksheet-api/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a valid bcrypt hash compared against when the username
// is unknown, so lookups take the same time either way.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// userService is the concrete implementation of UserService
type userService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newUserService creates a new UserService
func newUserService(repos *repository.Repositories, log zerolog.Logger) *userService {
	return &userService{
		repos: repos,
		log:   log.With().Str("service", "user").Logger(),
	}
}

// Authenticate verifies credentials. Unknown username and wrong password
// are indistinguishable to the caller: both return nil, nil.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.AuthUser, error) {
	user, err := s.repos.User.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return &models.AuthUser{
		ID:       user.ID,
		Username: user.Username,
		Nome:     user.Nome,
		Role:     user.Role,
	}, nil
}

// List returns all accounts.
func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	return s.repos.User.List(ctx)
}

// Create adds a new account with a bcrypt-hashed password.
func (s *userService) Create(ctx context.Context, username, password, nome, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	nome = strings.TrimSpace(nome)
	if errs := validation.UserData(username, password, nome, role); len(errs) > 0 {
		return nil, models.NewValidationError(strings.Join(errs, "; "))
	}
	if password == "" {
		return nil, models.NewValidationError("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewStorageError("password hashing", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Nome:         nome,
		Role:         role,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("username", user.Username).Str("role", user.Role).Msg("Account created")
	return user, nil
}

// Update changes an account's display name and role.
func (s *userService) Update(ctx context.Context, id int, nome, role string) (*models.User, error) {
	nome = strings.TrimSpace(nome)
	if errs := validation.ProfileData(nome, role); len(errs) > 0 {
		return nil, models.NewValidationError(strings.Join(errs, "; "))
	}

	user, err := s.repos.User.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFound("account")
	}
	if user.ID == models.ProtectedUserID && role != models.RoleAdministrator {
		return nil, models.NewValidationError("the primary administrator must keep the administrator role")
	}

	if _, err := s.repos.User.UpdateProfile(ctx, id, nome, role); err != nil {
		return nil, err
	}
	user.Nome = nome
	user.Role = role

	s.log.Info().Int("id", id).Str("username", user.Username).Msg("Account updated")
	return user, nil
}

// ChangePassword replaces an account's password.
func (s *userService) ChangePassword(ctx context.Context, id int, password string) error {
	if errs := validation.Password(password); len(errs) > 0 {
		return models.NewValidationError(strings.Join(errs, "; "))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewStorageError("password hashing", err)
	}
	updated, err := s.repos.User.UpdatePassword(ctx, id, string(hash))
	if err != nil {
		return err
	}
	if !updated {
		return models.NewNotFound("account")
	}

	s.log.Info().Int("id", id).Msg("Password changed")
	return nil
}

// Delete removes an account. The bootstrap Admin is untouchable.
func (s *userService) Delete(ctx context.Context, id int) error {
	user, err := s.repos.User.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewNotFound("account")
	}
	if user.ID == models.ProtectedUserID || user.Username == models.ProtectedUserUsername {
		return models.NewProtectedAccount()
	}

	if _, err := s.repos.User.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int("id", id).Str("username", user.Username).Msg("Account deleted")
	return nil
}

// Bootstrap seeds the default accounts when the user table is empty, so
// a fresh deployment is immediately usable.
func (s *userService) Bootstrap(ctx context.Context) error {
	count, err := s.repos.User.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeds := []struct {
		username, password, nome, role string
	}{
		{models.ProtectedUserUsername, "admin123", "Administrador", models.RoleAdministrator},
		{"AssAdm", "adm123", "Assistente Administrativo", models.RoleAssistant},
	}
	for _, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return models.NewStorageError("password hashing", err)
		}
		user := &models.User{
			Username:     seed.username,
			PasswordHash: string(hash),
			Nome:         seed.nome,
			Role:         seed.role,
		}
		if err := s.repos.User.Create(ctx, user); err != nil {
			return err
		}
		s.log.Info().Str("username", seed.username).Msg("Seeded default account")
	}
	return nil
}
