package devices

import (
	"context"

	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

type Repository interface {
	GetByVendorID(ctx context.Context, vendorID string, loginID string) (*models.Device, error)
	Create(ctx context.Context, device *models.Device) (*models.Device, error)
	UpdateFromVendor(ctx context.Context, id string, description string, isFavorite bool) error
	UpdateByUser(ctx context.Context, id string, nameByUser *string, isFavorite bool) error
	CameraClaimed(ctx context.Context, cameraID string) (bool, error)
	GetForUser(ctx context.Context, userID string, id string) (*models.Device, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Device, error)
}
