package logins

import (
	"context"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

// Repository persists vendor logins and the vendor session token last
// obtained for each of them.
type Repository interface {
	Create(ctx context.Context, login *models.Login) (*models.Login, error)
	GetByLogin(ctx context.Context, login string) (*models.Login, error)
	GetByID(ctx context.Context, id string) (*models.Login, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Login, error)
	UpdateVendorToken(ctx context.Context, id string, token string, expiresAt *time.Time) error
}
