// Package devices stores intercoms and barriers reported by the vendor.
package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/dbx"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

const selectColumns = `d.id, d.vendor_id, d.device_type, d.login_id, d.camera_id, d.description, d.is_favorite, d.name_by_user, d.updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByVendorID(ctx context.Context, vendorID string, loginID string) (*models.Device, error) {
	query := `SELECT ` + selectColumns + ` FROM devices d WHERE d.vendor_id = $1 AND d.login_id = $2`
	return r.getOne(ctx, query, vendorID, loginID)
}

// GetForUser returns the device only when it belongs to one of userID's logins.
func (r *PostgresRepository) GetForUser(ctx context.Context, userID string, id string) (*models.Device, error) {
	query := `SELECT ` + selectColumns + ` FROM devices d
		 JOIN logins l ON l.id = d.login_id
		 WHERE l.user_id = $1 AND d.id = $2`
	return r.getOne(ctx, query, userID, id)
}

func (r *PostgresRepository) Create(ctx context.Context, device *models.Device) (*models.Device, error) {
	query :=
		`INSERT INTO devices (vendor_id, device_type, login_id, camera_id, description, is_favorite, name_by_user)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		device.VendorID, string(device.Type), device.LoginID, dbx.NullStringPtr(device.CameraID),
		device.Description, device.IsFavorite, dbx.NullStringPtr(device.NameByUser),
	).Scan(&device.ID, &device.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return device, nil
}

// UpdateFromVendor refreshes the description and raises the favorite flag.
// A favorite is never cleared here.
func (r *PostgresRepository) UpdateFromVendor(ctx context.Context, id string, description string, isFavorite bool) error {
	query :=
		`UPDATE devices SET description = $2, is_favorite = is_favorite OR $3, updated_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, description, isFavorite); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateByUser applies the user's own display name and favorite choice.
func (r *PostgresRepository) UpdateByUser(ctx context.Context, id string, nameByUser *string, isFavorite bool) error {
	query :=
		`UPDATE devices SET name_by_user = $2, is_favorite = $3, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, dbx.NullStringPtr(nameByUser), isFavorite)
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

// CameraClaimed reports whether some device already references cameraID.
func (r *PostgresRepository) CameraClaimed(ctx context.Context, cameraID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM devices WHERE camera_id = $1)`

	var claimed bool
	if err := r.db.QueryRowContext(ctx, query, cameraID).Scan(&claimed); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return claimed, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Device, error) {
	query := `SELECT ` + selectColumns + ` FROM devices d
		 JOIN logins l ON l.id = d.login_id
		 WHERE l.user_id = $1
		 ORDER BY d.is_favorite DESC, d.vendor_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select devices: %w", err)
	}
	defer rows.Close()

	var result []*models.Device
	for rows.Next() {
		item, err := scanDevice(rows)
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

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Device, error) {
	item, err := scanDevice(r.db.QueryRowContext(ctx, query, args...))
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

func scanDevice(s scanner) (*models.Device, error) {
	var (
		item       models.Device
		deviceType string
		cameraID   sql.NullString
		nameByUser sql.NullString
	)
	err := s.Scan(&item.ID, &item.VendorID, &deviceType, &item.LoginID, &cameraID,
		&item.Description, &item.IsFavorite, &nameByUser, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Type = models.DeviceType(deviceType)
	item.CameraID = dbx.StringPtr(cameraID)
	item.NameByUser = dbx.StringPtr(nameByUser)
	return &item, nil
}
