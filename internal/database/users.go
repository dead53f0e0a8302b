package database

import (
	"context"
	"fmt"

	"lightbnb/server/internal/models"
)

// GetUserByEmail returns nil when no user has the given email.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.getUser(ctx, `SELECT id, name, email, password FROM users WHERE email = ?`, email)
}

// GetUserByID returns nil when no user has the given id.
func (d *Database) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return d.getUser(ctx, `SELECT id, name, email, password FROM users WHERE id = ?`, id)
}

func (d *Database) getUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var u models.User
	err := d.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.Password)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}
