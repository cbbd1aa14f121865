// Package users stores local accounts and their signing secrets.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/dbx"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a user without a secret; the secret is set on first mint.
func (r *PostgresRepository) Create(ctx context.Context) (*models.User, error) {
	query :=
		`INSERT INTO users DEFAULT VALUES
		 RETURNING id, created_at
		 `

	user := &models.User{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&user.ID, &user.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, secret_key, local_token, created_at FROM users
		 WHERE id = $1
		 `

	var secret, token sql.NullString
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &secret, &token, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.SecretKey = secret.String
	user.LocalToken = token.String

	return user, nil
}

func (r *PostgresRepository) UpdateSecret(ctx context.Context, id string, secret string) error {
	query := `UPDATE users SET secret_key = $2 WHERE id = $1`
	return r.updateOne(ctx, query, id, secret)
}

func (r *PostgresRepository) UpdateLocalToken(ctx context.Context, id string, token string) error {
	query := `UPDATE users SET local_token = $2 WHERE id = $1`
	return r.updateOne(ctx, query, id, token)
}

func (r *PostgresRepository) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
