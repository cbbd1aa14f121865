package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/server/keyapi"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

// VendorAPI is the subset of the vendor client a handle drives.
type VendorAPI interface {
	SendCode(ctx context.Context, deviceID, phone string, captcha *keyapi.CaptchaAnswer) (*keyapi.SendCodeData, error)
	Login(ctx context.Context, deviceID, code, codeID string) (*keyapi.LoginData, error)
	Cameras(ctx context.Context, token string) ([]keyapi.Camera, error)
	Devices(ctx context.Context, token string, category keyapi.DeviceCategory) ([]keyapi.Device, error)
	OpenDevice(ctx context.Context, token, deviceID string) error
}

// Accounts resolves stored logins and signs users in after a vendor login.
type Accounts interface {
	// FindLogin returns common.ErrorNotFound when the login was never stored.
	FindLogin(ctx context.Context, login string) (*models.Login, error)
	// SignIn stores the vendor token for login, creating the user and login
	// when needed, and returns a freshly minted local token.
	SignIn(ctx context.Context, login, vendorToken string, expiresAt *time.Time) (string, error)
}

// Inventory persists vendor listings for a login.
type Inventory interface {
	ReconcileCameras(ctx context.Context, items []keyapi.Camera, login *models.Login) error
	ReconcileDevices(ctx context.Context, items []keyapi.Device, login *models.Login, category models.DeviceType) error
}
