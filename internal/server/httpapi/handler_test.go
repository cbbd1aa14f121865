package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/logging"
	"github.com/dmitrijs2005/intercomkey/internal/server/keyapi"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/dmitrijs2005/intercomkey/internal/server/services"
	"github.com/dmitrijs2005/intercomkey/internal/server/sessions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// --- fakes ---

type fakeVendor struct {
	sendErr  error
	loginErr error
	openErr  error
	opened   []string
}

func (f *fakeVendor) SendCode(context.Context, string, string, *keyapi.CaptchaAnswer) (*keyapi.SendCodeData, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &keyapi.SendCodeData{CodeID: "code-1"}, nil
}

func (f *fakeVendor) Login(context.Context, string, string, string) (*keyapi.LoginData, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &keyapi.LoginData{AccessToken: "vendor-token"}, nil
}

func (f *fakeVendor) Cameras(context.Context, string) ([]keyapi.Camera, error) { return nil, nil }

func (f *fakeVendor) Devices(context.Context, string, keyapi.DeviceCategory) ([]keyapi.Device, error) {
	return nil, nil
}

func (f *fakeVendor) OpenDevice(_ context.Context, _ string, deviceID string) error {
	f.opened = append(f.opened, deviceID)
	return f.openErr
}

type fakeInventory struct{}

func (fakeInventory) ReconcileCameras(context.Context, []keyapi.Camera, *models.Login) error {
	return nil
}

func (fakeInventory) ReconcileDevices(context.Context, []keyapi.Device, *models.Login, models.DeviceType) error {
	return nil
}

type fakeAccounts struct {
	logins  map[string]*models.Login
	signErr error
}

func (f *fakeAccounts) FindLogin(_ context.Context, login string) (*models.Login, error) {
	l, ok := f.logins[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return l, nil
}

func (f *fakeAccounts) SignIn(_ context.Context, login, vendorToken string, expiresAt *time.Time) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.logins[login] = &models.Login{ID: "l-" + login, Login: login, UserID: "u1", VendorToken: vendorToken, ExpiresAt: expiresAt}
	return "local-u1", nil
}

func (f *fakeAccounts) LoginsOf(_ context.Context, userID string) ([]*models.Login, error) {
	var out []*models.Login
	for _, l := range f.logins {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeAccounts) OwnsLogin(_ context.Context, userID, login string) (*models.Login, error) {
	l, ok := f.logins[login]
	if !ok || l.UserID != userID {
		return nil, common.ErrorForbidden
	}
	return l, nil
}

type fakeTokens struct {
	rotated []string
}

func (f *fakeTokens) Verify(_ context.Context, token string) (string, error) {
	if token == "local-u1" {
		return "u1", nil
	}
	return "", common.ErrInvalidToken
}

func (f *fakeTokens) Rotate(_ context.Context, userID string) error {
	f.rotated = append(f.rotated, userID)
	return nil
}

type fakeDevices struct {
	devices map[string]*models.Device
}

func (f *fakeDevices) Devices(_ context.Context, userID string) ([]*models.Device, error) {
	var out []*models.Device
	for _, d := range f.devices {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDevices) Cameras(context.Context, string) ([]*models.Camera, error) {
	return []*models.Camera{{ID: "c1", VendorID: "vc1"}}, nil
}

func (f *fakeDevices) Device(_ context.Context, userID, id string) (*models.Device, error) {
	d, ok := f.devices[id]
	if !ok || userID != "u1" {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

func (f *fakeDevices) Update(ctx context.Context, userID, id string, u services.DeviceUpdate) (*models.Device, error) {
	d, err := f.Device(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if u.NameByUser != nil {
		d.NameByUser = u.NameByUser
	}
	if u.IsFavorite != nil {
		d.IsFavorite = *u.IsFavorite
	}
	return d, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

// --- harness ---

type env struct {
	router   *gin.Engine
	vendor   *fakeVendor
	accounts *fakeAccounts
	tokens   *fakeTokens
	manager  *sessions.Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		vendor:   &fakeVendor{},
		accounts: &fakeAccounts{logins: map[string]*models.Login{}},
		tokens:   &fakeTokens{},
	}
	e.manager = sessions.NewManager(e.vendor, e.accounts, fakeInventory{}, logging.Discard(), 100, time.Hour)
	devices := &fakeDevices{devices: map[string]*models.Device{
		"d1": {ID: "d1", VendorID: "vd1", Type: models.DeviceTypeIntercom, LoginID: "l-111", Description: "Door"},
	}}
	h := NewHandler(e.manager, e.tokens, e.accounts, devices, fakePinger{}, logging.Discard())
	e.router = h.Routes()
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) (int, response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

// --- tests ---

func TestPing(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":"pong"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	code, resp := e.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, sessions.StatusGood, resp.Status)

	h := NewHandler(e.manager, e.tokens, e.accounts, &fakeDevices{}, fakePinger{err: errors.New("down")}, logging.Discard())
	e.router = h.Routes()
	code, resp = e.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, sessions.StatusBad, resp.Status)
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)

	code, resp := e.do(t, http.MethodPost, "/auth/request_token", "", gin.H{"login": "111", "code": "1234"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, sessions.StatusBad, resp.Status)
	assert.Equal(t, sessions.ReasonSessionNotFound, resp.Reason)

	code, resp = e.do(t, http.MethodPost, "/auth/request_code", "", gin.H{"login": "111"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, sessions.StatusGood, resp.Status)

	code, resp = e.do(t, http.MethodPost, "/auth/request_token", "", gin.H{"login": "111", "code": "1234"})
	assert.Equal(t, http.StatusOK, code)
	require.Equal(t, sessions.StatusGood, resp.Status)
	assert.Equal(t, map[string]any{"token": "local-u1"}, resp.Data)

	h, ok := e.manager.Lookup("111")
	require.True(t, ok)
	assert.Equal(t, sessions.StateAuthenticated, h.State())
}

func TestRequestCode_Captcha(t *testing.T) {
	e := newEnv(t)
	e.vendor.sendErr = &keyapi.CaptchaError{Captcha: keyapi.Captcha{ID: "c1", URL: "https://captcha"}}

	code, resp := e.do(t, http.MethodPost, "/auth/request_code", "", gin.H{"login": "111"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, sessions.ReasonCaptchaRequired, resp.Reason)
	assert.Equal(t, map[string]any{"id": "c1", "url": "https://captcha"}, resp.Data)
}

func TestRequestCode_BadRequest(t *testing.T) {
	e := newEnv(t)
	code, resp := e.do(t, http.MethodPost, "/auth/request_code", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, sessions.StatusBad, resp.Status)
}

func TestRequestToken_PersistenceFailure(t *testing.T) {
	e := newEnv(t)
	e.accounts.signErr = errors.New("db down")

	e.do(t, http.MethodPost, "/auth/request_code", "", gin.H{"login": "111"})
	code, resp := e.do(t, http.MethodPost, "/auth/request_token", "", gin.H{"login": "111", "code": "1"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, sessions.StatusBad, resp.Status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		method, path, token string
	}{
		{http.MethodGet, "/logins", ""},
		{http.MethodGet, "/devices", "garbage"},
		{http.MethodGet, "/cameras", ""},
		{http.MethodPost, "/devices/load", ""},
		{http.MethodPost, "/devices/d1/open", "garbage"},
		{http.MethodPatch, "/devices/d1", ""},
		{http.MethodPost, "/auth/logout", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, resp := e.do(t, tt.method, tt.path, tt.token, gin.H{})
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, sessions.StatusBad, resp.Status)
		})
	}
}

func TestLoadDevices(t *testing.T) {
	e := newEnv(t)
	e.accounts.logins["111"] = &models.Login{ID: "l-111", Login: "111", UserID: "u1", VendorToken: "vt"}
	e.accounts.logins["222"] = &models.Login{ID: "l-222", Login: "222", UserID: "u2", VendorToken: "vt"}

	code, resp := e.do(t, http.MethodPost, "/devices/load", "local-u1", gin.H{"login": "111"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, sessions.StatusGood, resp.Status)
	assert.Equal(t, map[string]any{"cameras": true, "intercom": true, "barrier": true}, resp.Data)

	code, _ = e.do(t, http.MethodPost, "/devices/load", "local-u1", gin.H{"login": "222"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestOpenDevice(t *testing.T) {
	e := newEnv(t)
	e.accounts.logins["111"] = &models.Login{ID: "l-111", Login: "111", UserID: "u1", VendorToken: "vt"}

	code, resp := e.do(t, http.MethodPost, "/devices/d1/open", "local-u1", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, sessions.StatusGood, resp.Status)
	assert.Equal(t, []string{"vd1"}, e.vendor.opened)

	e.vendor.openErr = keyapi.ErrUnauthorized
	_, resp = e.do(t, http.MethodPost, "/devices/d1/open", "local-u1", nil)
	assert.Equal(t, sessions.ReasonTokenExpired, resp.Reason)

	code, _ = e.do(t, http.MethodPost, "/devices/nope/open", "local-u1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListsAndUpdate(t *testing.T) {
	e := newEnv(t)
	exp := time.Now().Add(-time.Hour)
	e.accounts.logins["111"] = &models.Login{ID: "l-111", Login: "111", UserID: "u1", ExpiresAt: &exp}

	code, resp := e.do(t, http.MethodGet, "/logins", "local-u1", nil)
	require.Equal(t, http.StatusOK, code)
	logins := resp.Data.(map[string]any)["logins"].([]any)
	require.Len(t, logins, 1)
	assert.Equal(t, "111", logins[0].(map[string]any)["login"])
	assert.Equal(t, true, logins[0].(map[string]any)["expired"])

	code, resp = e.do(t, http.MethodGet, "/devices", "local-u1", nil)
	require.Equal(t, http.StatusOK, code)
	devices := resp.Data.(map[string]any)["devices"].([]any)
	require.Len(t, devices, 1)
	assert.Equal(t, "Door", devices[0].(map[string]any)["name"])

	code, resp = e.do(t, http.MethodGet, "/cameras", "local-u1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data.(map[string]any)["cameras"].([]any), 1)

	code, resp = e.do(t, http.MethodPatch, "/devices/d1", "local-u1", gin.H{"name_by_user": "Front", "is_favorite": true})
	require.Equal(t, http.StatusOK, code)
	dev := resp.Data.(map[string]any)
	assert.Equal(t, "Front", dev["name"])
	assert.Equal(t, true, dev["is_favorite"])

	code, _ = e.do(t, http.MethodPatch, "/devices/zzz", "local-u1", gin.H{"is_favorite": true})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	e.accounts.logins["111"] = &models.Login{ID: "l-111", Login: "111", UserID: "u1", VendorToken: "vt"}
	_, err := e.manager.GetOrCreate(context.Background(), "111")
	require.NoError(t, err)

	code, resp := e.do(t, http.MethodPost, "/auth/logout", "local-u1", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, sessions.StatusGood, resp.Status)
	assert.Equal(t, []string{"u1"}, e.tokens.rotated)

	_, ok := e.manager.Lookup("111")
	assert.False(t, ok)
}
