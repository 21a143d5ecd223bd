package repository

import (
	"context"

	"agentflow/pkg/models"
)

const userColumns = "id, email, name, avatar, password_hash, created_at, updated_at"

// CreateUser inserts a user.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.QueryRow(ctx,
		"INSERT INTO users (email, name, avatar, password_hash) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at",
		user.Email, user.Name, user.Avatar, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return classify("create user", err)
}

// GetUser retrieves a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(ctx, "get user", "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(ctx, "get user by email", "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (s *PostgresStore) scanUser(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, classify(op, err)
	}
	return &u, nil
}
