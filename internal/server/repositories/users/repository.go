package users

import (
	"context"

	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateSecret(ctx context.Context, id string, secret string) error
	UpdateLocalToken(ctx context.Context, id string, token string) error
}
