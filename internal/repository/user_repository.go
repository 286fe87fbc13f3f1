package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/braincrm/api-gateway/internal/model"
)

// UserRepo reads and updates rows in the `users` table. User creation
// belongs to the host platform; the gateway only authenticates against
// existing accounts and rotates password hashes on reset.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,login,name,email,password_hash,is_active,created_at,updated_at"

// GetByLogin fetches an active user by normalized login.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE login=? AND is_active=1 LIMIT 1",
		login).Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UpdatePasswordHash stores a new bcrypt hash for the user.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=?", hash, id)
	return err
}
