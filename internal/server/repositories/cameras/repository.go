package cameras

import (
	"context"

	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

type Repository interface {
	GetByVendorID(ctx context.Context, vendorID string) (*models.Camera, error)
	Create(ctx context.Context, camera *models.Camera) (*models.Camera, error)
	Update(ctx context.Context, camera *models.Camera) error
	ListByUser(ctx context.Context, userID string) ([]*models.Camera, error)
}
