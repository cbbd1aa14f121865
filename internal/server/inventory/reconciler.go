// Package inventory mirrors the vendor's camera and device listings of a login
// into the local store.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/dbx"
	"github.com/dmitrijs2005/intercomkey/internal/logging"
	"github.com/dmitrijs2005/intercomkey/internal/server/keyapi"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/cameras"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/devices"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/repomanager"
)

// Reconciler upserts vendor listings. Every call is one transaction; rows
// missing from a listing are left alone.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewReconciler(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *Reconciler {
	return &Reconciler{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "inventory"),
	}
}

// ReconcileCameras refreshes known cameras and adds new ones under login.
func (r *Reconciler) ReconcileCameras(ctx context.Context, items []keyapi.Camera, login *models.Login) error {
	var created, updated int

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.repomanager.Cameras(tx)

		for _, item := range items {
			existing, err := repo.GetByVendorID(ctx, item.ID)
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("error looking up camera %s: %w", item.ID, err)
			}

			if existing != nil {
				applyCamera(existing, item)
				if err := repo.Update(ctx, existing); err != nil {
					return fmt.Errorf("error updating camera %s: %w", item.ID, err)
				}
				updated++
				continue
			}

			camera := &models.Camera{VendorID: item.ID, LoginID: login.ID}
			applyCamera(camera, item)
			if _, err := repo.Create(ctx, camera); err != nil {
				return fmt.Errorf("error creating camera %s: %w", item.ID, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug(ctx, "cameras reconciled", "login", login.Login, "created", created, "updated", updated)
	return nil
}

// ReconcileDevices refreshes the devices of one category for login. Vendor
// data may raise the favorite flag but never clears it. New devices of an
// unknown type are skipped.
func (r *Reconciler) ReconcileDevices(ctx context.Context, items []keyapi.Device, login *models.Login, category models.DeviceType) error {
	var created, updated, skipped int

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.repomanager.Devices(tx)
		camRepo := r.repomanager.Cameras(tx)

		for _, item := range items {
			existing, err := repo.GetByVendorID(ctx, item.ID, login.ID)
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("error looking up device %s: %w", item.ID, err)
			}

			if existing != nil {
				if err := repo.UpdateFromVendor(ctx, existing.ID, item.Description, item.IsFavorite); err != nil {
					return fmt.Errorf("error updating device %s: %w", item.ID, err)
				}
				updated++
				continue
			}

			deviceType := models.DeviceType(item.DeviceType)
			if deviceType == "" {
				deviceType = category
			}
			if !deviceType.Valid() {
				r.logger.Warn(ctx, "device of unknown type skipped", "vendor_device_id", item.ID, "device_type", item.DeviceType)
				skipped++
				continue
			}

			cameraID, err := resolveCamera(ctx, camRepo, repo, item.CameraID)
			if err != nil {
				return fmt.Errorf("error resolving camera of device %s: %w", item.ID, err)
			}

			device := &models.Device{
				VendorID:    item.ID,
				Type:        deviceType,
				LoginID:     login.ID,
				CameraID:    cameraID,
				Description: item.Description,
				IsFavorite:  item.IsFavorite,
				NameByUser:  item.NameByUser,
			}
			if _, err := repo.Create(ctx, device); err != nil {
				return fmt.Errorf("error creating device %s: %w", item.ID, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug(ctx, "devices reconciled", "login", login.Login, "category", string(category),
		"created", created, "updated", updated, "skipped", skipped)
	return nil
}

func applyCamera(c *models.Camera, item keyapi.Camera) {
	c.ArchiveLength = item.ArchiveLength
	c.ScreenshotURLTemplate = item.ScreenshotURLTemplate
	c.ScreenshotToken = item.ScreenshotToken
	c.StreamerToken = item.StreamerToken
}

// resolveCamera maps a vendor camera id to the local camera id. Unknown
// cameras and cameras already linked to another device resolve to nil.
func resolveCamera(ctx context.Context, camRepo cameras.Repository, devRepo devices.Repository, vendorCameraID *string) (*string, error) {
	if vendorCameraID == nil || *vendorCameraID == "" {
		return nil, nil
	}

	camera, err := camRepo.GetByVendorID(ctx, *vendorCameraID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	claimed, err := devRepo.CameraClaimed(ctx, camera.ID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, nil
	}
	return &camera.ID, nil
}
