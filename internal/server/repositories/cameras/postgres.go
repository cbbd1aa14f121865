// Package cameras stores the vendor camera inventory of each login.
package cameras

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

func (r *PostgresRepository) GetByVendorID(ctx context.Context, vendorID string) (*models.Camera, error) {
	query :=
		`SELECT c.id, c.vendor_id, c.login_id, c.archive_length, c.screenshot_url_template,
		        c.screenshot_token, c.streamer_token, c.updated_at
		 FROM cameras c
		 WHERE c.vendor_id = $1
		 `

	item, err := scanCamera(r.db.QueryRowContext(ctx, query, vendorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Create(ctx context.Context, camera *models.Camera) (*models.Camera, error) {
	query :=
		`INSERT INTO cameras (vendor_id, login_id, archive_length, screenshot_url_template, screenshot_token, streamer_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		camera.VendorID, camera.LoginID, nullInt(camera.ArchiveLength),
		camera.ScreenshotURLTemplate, camera.ScreenshotToken, camera.StreamerToken,
	).Scan(&camera.ID, &camera.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return camera, nil
}

// Update overwrites the vendor-provided attributes of an existing camera.
func (r *PostgresRepository) Update(ctx context.Context, camera *models.Camera) error {
	query :=
		`UPDATE cameras SET archive_length = $2, screenshot_url_template = $3,
		        screenshot_token = $4, streamer_token = $5, updated_at = now()
		 WHERE id = $1
		 `

	_, err := r.db.ExecContext(ctx, query,
		camera.ID, nullInt(camera.ArchiveLength),
		camera.ScreenshotURLTemplate, camera.ScreenshotToken, camera.StreamerToken,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Camera, error) {
	query :=
		`SELECT c.id, c.vendor_id, c.login_id, c.archive_length, c.screenshot_url_template,
		        c.screenshot_token, c.streamer_token, c.updated_at
		 FROM cameras c
		 JOIN logins l ON l.id = c.login_id
		 WHERE l.user_id = $1
		 ORDER BY c.vendor_id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select cameras: %w", err)
	}
	defer rows.Close()

	var result []*models.Camera
	for rows.Next() {
		item, err := scanCamera(rows)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanCamera(s scanner) (*models.Camera, error) {
	var (
		item    models.Camera
		archive sql.NullInt64
	)
	err := s.Scan(&item.ID, &item.VendorID, &item.LoginID, &archive,
		&item.ScreenshotURLTemplate, &item.ScreenshotToken, &item.StreamerToken, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if archive.Valid {
		v := int(archive.Int64)
		item.ArchiveLength = &v
	}
	return &item, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
