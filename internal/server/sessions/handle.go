package sessions

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/intercomkey/internal/logging"
	"github.com/dmitrijs2005/intercomkey/internal/server/keyapi"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/google/uuid"
)

// Handle is the live vendor session of one login. All operations on a handle
// are serialized. Vendor failures are reported through Result; only
// persistence failures come back as errors.
type Handle struct {
	mu sync.Mutex

	login    string
	deviceID string
	codeID   string
	token    string
	state    State

	api       VendorAPI
	accounts  Accounts
	inventory Inventory
	logger    logging.Logger

	// onState is called with mu held after every state change.
	onState func(h *Handle, s State)
}

func newHandle(login, vendorToken string, api VendorAPI, accounts Accounts, inventory Inventory, logger logging.Logger) *Handle {
	h := &Handle{
		login:     login,
		deviceID:  uuid.NewString(),
		token:     vendorToken,
		state:     StateUnauthenticated,
		api:       api,
		accounts:  accounts,
		inventory: inventory,
	}
	if vendorToken != "" {
		h.state = StateAuthenticated
	}
	h.logger = logger.With("login", login, "device_id", h.deviceID)
	return h
}

func (h *Handle) setState(s State) {
	h.state = s
	if h.onState != nil {
		h.onState(h, s)
	}
}

func (h *Handle) Login() string { return h.login }

// DeviceID is the X-Device-Id presented to the vendor. It never changes.
func (h *Handle) DeviceID() string { return h.deviceID }

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// RequestCode asks the vendor to text a confirmation code. The captcha answer
// is forwarded only when both parts are given.
func (h *Handle) RequestCode(ctx context.Context, captchaID, captchaCode string) Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	var captcha *keyapi.CaptchaAnswer
	if captchaID != "" && captchaCode != "" {
		captcha = &keyapi.CaptchaAnswer{ID: captchaID, Code: captchaCode}
	}

	data, err := h.api.SendCode(ctx, h.deviceID, h.login, captcha)
	if err != nil {
		var ce *keyapi.CaptchaError
		switch {
		case errors.As(err, &ce):
			h.logger.Info(ctx, "vendor asks for captcha", "captcha_id", ce.Captcha.ID)
			return bad(ReasonCaptchaRequired, "captcha required", map[string]any{
				"id":  ce.Captcha.ID,
				"url": ce.Captcha.URL,
			})
		case errors.Is(err, keyapi.ErrRateLimited):
			return bad(ReasonRateLimited, "too many requests, wait before requesting a new code", nil)
		default:
			h.logger.Warn(ctx, "send code failed", "error", err)
			return bad(ReasonVendorError, "failed to request code", nil)
		}
	}

	h.codeID = data.CodeID
	h.setState(StateCodeRequested)
	h.logger.Debug(ctx, "code requested", "code_id", data.CodeID)

	var payload map[string]any
	if data.Timeout > 0 {
		payload = map[string]any{"timeout": data.Timeout}
	}
	return good("code sent", payload)
}

// RequestToken exchanges code for a vendor token, records it for the login
// and returns a local token in Data["token"].
func (h *Handle) RequestToken(ctx context.Context, code string) (Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.api.Login(ctx, h.deviceID, code, h.codeID)
	if err != nil {
		if errors.Is(err, keyapi.ErrInvalidCode) {
			return bad(ReasonInvalidCode, "invalid code", nil), nil
		}
		h.logger.Warn(ctx, "vendor login failed", "error", err)
		return bad(ReasonVendorError, "failed to obtain token", nil), nil
	}

	h.token = data.AccessToken
	h.codeID = ""
	h.setState(StateAuthenticated)

	local, err := h.accounts.SignIn(ctx, h.login, data.AccessToken, data.ExpiresAt())
	if err != nil {
		return Result{}, err
	}

	h.logger.Info(ctx, "vendor session established")
	return good("token received", map[string]any{"token": local}), nil
}

// LoadInventory refreshes cameras and every device category. Data maps
// "cameras", "intercom" and "barrier" to whether that refresh succeeded.
func (h *Handle) LoadInventory(ctx context.Context) (Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := map[string]any{"cameras": false}
	for _, t := range models.DeviceTypes {
		status[string(t)] = false
	}

	if h.token == "" {
		return good("inventory refreshed", status), nil
	}

	login, err := h.accounts.FindLogin(ctx, h.login)
	if err != nil {
		return Result{}, err
	}

	camerasOK, err := h.refreshCameras(ctx, login)
	if err != nil {
		return Result{}, err
	}

	for _, t := range models.DeviceTypes {
		// cameras must be in place before devices can link to them
		if !camerasOK {
			if camerasOK, err = h.refreshCameras(ctx, login); err != nil {
				return Result{}, err
			}
		}

		ok, err := h.refreshDevices(ctx, login, t)
		if err != nil {
			return Result{}, err
		}
		status[string(t)] = ok
	}
	status["cameras"] = camerasOK

	return good("inventory refreshed", status), nil
}

// OpenDevice opens the door or barrier with the given vendor id.
func (h *Handle) OpenDevice(ctx context.Context, vendorDeviceID string) Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.token == "" {
		return bad(ReasonNotAuthenticated, "not authenticated", nil)
	}

	err := h.api.OpenDevice(ctx, h.token, vendorDeviceID)
	switch {
	case err == nil:
		h.logger.Info(ctx, "device opened", "vendor_device_id", vendorDeviceID)
		return good("opened", nil)
	case errors.Is(err, keyapi.ErrUnauthorized):
		return bad(ReasonTokenExpired, "token expired", nil)
	default:
		h.logger.Warn(ctx, "open device failed", "vendor_device_id", vendorDeviceID, "error", err)
		return bad(ReasonVendorError, "failed to open device", nil)
	}
}

func (h *Handle) refreshCameras(ctx context.Context, login *models.Login) (bool, error) {
	items, err := h.api.Cameras(ctx, h.token)
	if err != nil {
		h.logger.Warn(ctx, "camera listing failed", "error", err)
		return false, nil
	}
	if err := h.inventory.ReconcileCameras(ctx, items, login); err != nil {
		return false, err
	}
	return true, nil
}

func (h *Handle) refreshDevices(ctx context.Context, login *models.Login, t models.DeviceType) (bool, error) {
	items, err := h.api.Devices(ctx, h.token, keyapi.DeviceCategory(t))
	if err != nil {
		h.logger.Warn(ctx, "device listing failed", "category", string(t), "error", err)
		return false, nil
	}

	known := make([]keyapi.Device, 0, len(items))
	for _, item := range items {
		if dt := models.DeviceType(item.DeviceType); dt != "" && !dt.Valid() {
			h.logger.Warn(ctx, "vendor returned device of unknown type",
				"category", string(t), "vendor_device_id", item.ID, "device_type", item.DeviceType)
			continue
		}
		known = append(known, item)
	}

	if err := h.inventory.ReconcileDevices(ctx, known, login, t); err != nil {
		return false, err
	}
	return len(known) == len(items), nil
}
