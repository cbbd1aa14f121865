package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/server/keyapi"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
)

type fakeVendor struct {
	mu sync.Mutex

	sendCode   func(deviceID, phone string, captcha *keyapi.CaptchaAnswer) (*keyapi.SendCodeData, error)
	login      func(deviceID, code, codeID string) (*keyapi.LoginData, error)
	cameras    func(token string) ([]keyapi.Camera, error)
	devices    func(token string, category keyapi.DeviceCategory) ([]keyapi.Device, error)
	openDevice func(token, deviceID string) error

	calls []string
}

func (f *fakeVendor) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeVendor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeVendor) SendCode(_ context.Context, deviceID, phone string, captcha *keyapi.CaptchaAnswer) (*keyapi.SendCodeData, error) {
	f.record("send_code")
	if f.sendCode == nil {
		return &keyapi.SendCodeData{CodeID: "code-1"}, nil
	}
	return f.sendCode(deviceID, phone, captcha)
}

func (f *fakeVendor) Login(_ context.Context, deviceID, code, codeID string) (*keyapi.LoginData, error) {
	f.record("login")
	if f.login == nil {
		return &keyapi.LoginData{AccessToken: "vendor-token"}, nil
	}
	return f.login(deviceID, code, codeID)
}

func (f *fakeVendor) Cameras(_ context.Context, token string) ([]keyapi.Camera, error) {
	f.record("cameras")
	if f.cameras == nil {
		return nil, nil
	}
	return f.cameras(token)
}

func (f *fakeVendor) Devices(_ context.Context, token string, category keyapi.DeviceCategory) ([]keyapi.Device, error) {
	f.record("devices:" + string(category))
	if f.devices == nil {
		return nil, nil
	}
	return f.devices(token, category)
}

func (f *fakeVendor) OpenDevice(_ context.Context, token, deviceID string) error {
	f.record("open")
	if f.openDevice == nil {
		return nil
	}
	return f.openDevice(token, deviceID)
}

type signIn struct {
	login     string
	token     string
	expiresAt *time.Time
}

type fakeAccounts struct {
	mu      sync.Mutex
	logins  map[string]*models.Login
	signIns []signIn
	finds   int
	findCtx error
	err     error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{logins: map[string]*models.Login{}}
}

func (f *fakeAccounts) FindLogin(ctx context.Context, login string) (*models.Login, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	f.findCtx = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	l, ok := f.logins[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return l, nil
}

func (f *fakeAccounts) SignIn(_ context.Context, login, vendorToken string, expiresAt *time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.signIns = append(f.signIns, signIn{login, vendorToken, expiresAt})
	f.logins[login] = &models.Login{ID: "login-" + login, Login: login, UserID: "user-1", VendorToken: vendorToken, ExpiresAt: expiresAt}
	return "local-" + login, nil
}

type fakeInventory struct {
	mu      sync.Mutex
	cameras [][]keyapi.Camera
	devices map[models.DeviceType][]keyapi.Device
	err     error
}

func (f *fakeInventory) ReconcileCameras(_ context.Context, items []keyapi.Camera, _ *models.Login) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cameras = append(f.cameras, items)
	return nil
}

func (f *fakeInventory) ReconcileDevices(_ context.Context, items []keyapi.Device, _ *models.Login, category models.DeviceType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.devices == nil {
		f.devices = map[models.DeviceType][]keyapi.Device{}
	}
	f.devices[category] = items
	return nil
}
