package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/field-worksheet-api/internal/database"
	"github.com/field-worksheet-api/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for unique constraint hits
const uniqueViolation = "23505"

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

const userSelect = "SELECT id, username, password_hash, nome, role, data_criacao FROM users"

// GetByUsername retrieves an account by exact username
func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, userSelect+" WHERE username = $1", username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Nome, &u.Role, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStorageError("user lookup", err)
	}
	return &u, nil
}

// GetByID retrieves an account by id
func (r *userRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, userSelect+" WHERE id = $1", id).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Nome, &u.Role, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStorageError("user lookup", err)
	}
	return &u, nil
}

// List returns all accounts ordered by username
func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, userSelect+" ORDER BY username")
	if err != nil {
		return nil, models.NewStorageError("user list", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Nome, &u.Role, &u.CreatedAt); err != nil {
			return nil, models.NewStorageError("user list", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Create inserts a new account
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, nome, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, data_criacao
	`, user.Username, user.PasswordHash, user.Nome, user.Role).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.NewDuplicateUsername(user.Username)
		}
		return models.NewStorageError("user create", err)
	}
	return nil
}

// UpdateProfile changes display name and role
func (r *userRepo) UpdateProfile(ctx context.Context, id int, nome, role string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET nome = $1, role = $2 WHERE id = $3", nome, role, id)
	if err != nil {
		return false, models.NewStorageError("user update", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// UpdatePassword replaces the stored password hash
func (r *userRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, id)
	if err != nil {
		return false, models.NewStorageError("password update", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Delete removes an account. Protection of the bootstrap Admin is
// enforced by the service layer before this is called.
func (r *userRepo) Delete(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return false, models.NewStorageError("user delete", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Count returns the number of accounts
func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
