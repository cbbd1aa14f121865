package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/repomanager"
)

// DeviceUpdate carries the user-editable attributes of a device. Nil fields
// keep their current value.
type DeviceUpdate struct {
	NameByUser *string
	IsFavorite *bool
}

// DeviceService answers inventory queries from the local store.
type DeviceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewDeviceService(db *sql.DB, m repomanager.RepositoryManager) *DeviceService {
	return &DeviceService{db: db, repomanager: m}
}

func (s *DeviceService) Devices(ctx context.Context, userID string) ([]*models.Device, error) {
	return s.repomanager.Devices(s.db).ListByUser(ctx, userID)
}

func (s *DeviceService) Cameras(ctx context.Context, userID string) ([]*models.Camera, error) {
	return s.repomanager.Cameras(s.db).ListByUser(ctx, userID)
}

// Device returns common.ErrorNotFound unless deviceID belongs to userID.
func (s *DeviceService) Device(ctx context.Context, userID, deviceID string) (*models.Device, error) {
	return s.repomanager.Devices(s.db).GetForUser(ctx, userID, deviceID)
}

// Update applies u to a device of userID and returns the result.
func (s *DeviceService) Update(ctx context.Context, userID, deviceID string, u DeviceUpdate) (*models.Device, error) {
	repo := s.repomanager.Devices(s.db)

	device, err := repo.GetForUser(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	if u.NameByUser != nil {
		name := *u.NameByUser
		if name == "" {
			device.NameByUser = nil
		} else {
			device.NameByUser = &name
		}
	}
	if u.IsFavorite != nil {
		device.IsFavorite = *u.IsFavorite
	}

	if err := repo.UpdateByUser(ctx, device.ID, device.NameByUser, device.IsFavorite); err != nil {
		return nil, fmt.Errorf("error updating device: %w", err)
	}
	return device, nil
}
