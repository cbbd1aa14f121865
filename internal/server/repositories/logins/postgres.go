// Package logins is the vendor session store: one row per vendor login with
// its owning user and last vendor token.
package logins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/dbx"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

const selectColumns = `id, login, user_id, vendor_token, expires_at, address, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, login *models.Login) (*models.Login, error) {
	query :=
		`INSERT INTO logins (login, user_id, vendor_token, expires_at, address)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		login.Login, login.UserID, dbx.NullString(login.VendorToken), dbx.NullTime(login.ExpiresAt), dbx.NullString(login.Address),
	).Scan(&login.ID, &login.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return login, nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.Login, error) {
	query := `SELECT ` + selectColumns + ` FROM logins WHERE login = $1`
	return r.getOne(ctx, query, login)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Login, error) {
	query := `SELECT ` + selectColumns + ` FROM logins WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Login, error) {
	query := `SELECT ` + selectColumns + ` FROM logins WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Login
	for rows.Next() {
		item, err := scanLogin(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateVendorToken replaces the stored vendor token and its expiry.
func (r *PostgresRepository) UpdateVendorToken(ctx context.Context, id string, token string, expiresAt *time.Time) error {
	query :=
		`UPDATE logins SET vendor_token = $2, expires_at = $3
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, dbx.NullString(token), dbx.NullTime(expiresAt))
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

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Login, error) {
	item, err := scanLogin(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLogin(s scanner) (*models.Login, error) {
	var (
		item      models.Login
		token     sql.NullString
		expiresAt sql.NullTime
		address   sql.NullString
	)
	if err := s.Scan(&item.ID, &item.Login, &item.UserID, &token, &expiresAt, &address, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.VendorToken = token.String
	item.ExpiresAt = dbx.TimePtr(expiresAt)
	item.Address = address.String
	return &item, nil
}
