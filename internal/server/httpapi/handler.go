package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/logging"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/dmitrijs2005/intercomkey/internal/server/services"
	"github.com/dmitrijs2005/intercomkey/internal/server/sessions"
	"github.com/gin-gonic/gin"
)

// Sessions is the live vendor session registry.
type Sessions interface {
	GetOrCreate(ctx context.Context, login string) (*sessions.Handle, error)
	Lookup(login string) (*sessions.Handle, bool)
	Evict(login string)
}

type Tokens interface {
	Verify(ctx context.Context, token string) (string, error)
	Rotate(ctx context.Context, userID string) error
}

type Accounts interface {
	LoginsOf(ctx context.Context, userID string) ([]*models.Login, error)
	OwnsLogin(ctx context.Context, userID, login string) (*models.Login, error)
}

type Devices interface {
	Devices(ctx context.Context, userID string) ([]*models.Device, error)
	Cameras(ctx context.Context, userID string) ([]*models.Camera, error)
	Device(ctx context.Context, userID, deviceID string) (*models.Device, error)
	Update(ctx context.Context, userID, deviceID string, u services.DeviceUpdate) (*models.Device, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	sessions Sessions
	tokens   Tokens
	accounts Accounts
	devices  Devices
	db       Pinger
	logger   logging.Logger
}

func NewHandler(s Sessions, t Tokens, a Accounts, d Devices, db Pinger, l logging.Logger) *Handler {
	return &Handler{
		sessions: s,
		tokens:   t,
		accounts: a,
		devices:  d,
		db:       db,
		logger:   l.With("module", "http_handler"),
	}
}

func (h *Handler) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.timingMiddleware())

	router.GET("/ping", h.Ping)

	health := router.Group("/health")
	{
		health.GET("/live", h.Live)
		health.GET("/ready", h.Ready)
	}

	auth := router.Group("/auth")
	{
		auth.POST("/request_code", h.RequestCode)
		auth.POST("/request_token", h.RequestToken)
		auth.POST("/logout", h.authMiddleware(), h.Logout)
	}

	api := router.Group("/")
	api.Use(h.authMiddleware())
	{
		api.GET("/logins", h.Logins)
		api.GET("/cameras", h.Cameras)
		api.GET("/devices", h.Devices)
		api.POST("/devices/load", h.LoadDevices)
		api.PATCH("/devices/:id", h.UpdateDevice)
		api.POST("/devices/:id/open", h.OpenDevice)
	}

	return router
}

// GET /ping
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": "pong"})
}

// GET /health/live
func (h *Handler) Live(c *gin.Context) {
	goodResponse(c, "alive", nil)
}

// GET /health/ready
func (h *Handler) Ready(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		h.logger.Warn(c.Request.Context(), "database is not reachable", "error", err)
		newErrorResponse(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	goodResponse(c, "ready", nil)
}

type requestCodeRequest struct {
	Login       string `json:"login" binding:"required"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// POST /auth/request_code
func (h *Handler) RequestCode(c *gin.Context) {
	ctx := c.Request.Context()

	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request")
		return
	}

	handle, err := h.sessions.GetOrCreate(ctx, req.Login)
	if err != nil {
		h.internalError(c, "failed to open vendor session", err)
		return
	}

	resultResponse(c, handle.RequestCode(ctx, req.CaptchaID, req.CaptchaCode))
}

type requestTokenRequest struct {
	Login string `json:"login" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// POST /auth/request_token
func (h *Handler) RequestToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req requestTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request")
		return
	}

	handle, ok := h.sessions.Lookup(req.Login)
	if !ok {
		h.logger.Info(ctx, "session not found", "login", req.Login)
		resultResponse(c, sessions.SessionNotFound())
		return
	}

	res, err := handle.RequestToken(ctx, req.Code)
	if err != nil {
		h.internalError(c, "failed to store vendor session", err)
		return
	}
	resultResponse(c, res)
}

// POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	logins, err := h.accounts.LoginsOf(ctx, uid)
	if err != nil {
		h.internalError(c, "failed to list logins", err)
		return
	}

	if err := h.tokens.Rotate(ctx, uid); err != nil {
		h.internalError(c, "failed to revoke tokens", err)
		return
	}

	for _, l := range logins {
		h.sessions.Evict(l.Login)
	}
	goodResponse(c, "logged out", nil)
}

// GET /logins
func (h *Handler) Logins(c *gin.Context) {
	logins, err := h.accounts.LoginsOf(c.Request.Context(), userID(c))
	if err != nil {
		h.internalError(c, "failed to list logins", err)
		return
	}

	now := time.Now()
	views := make([]loginView, 0, len(logins))
	for _, l := range logins {
		views = append(views, newLoginView(l, now))
	}
	goodResponse(c, "", gin.H{"logins": views})
}

// GET /devices
func (h *Handler) Devices(c *gin.Context) {
	list, err := h.devices.Devices(c.Request.Context(), userID(c))
	if err != nil {
		h.internalError(c, "failed to list devices", err)
		return
	}

	views := make([]deviceView, 0, len(list))
	for _, d := range list {
		views = append(views, newDeviceView(d))
	}
	goodResponse(c, "", gin.H{"devices": views})
}

// GET /cameras
func (h *Handler) Cameras(c *gin.Context) {
	list, err := h.devices.Cameras(c.Request.Context(), userID(c))
	if err != nil {
		h.internalError(c, "failed to list cameras", err)
		return
	}

	views := make([]cameraView, 0, len(list))
	for _, cam := range list {
		views = append(views, newCameraView(cam))
	}
	goodResponse(c, "", gin.H{"cameras": views})
}

type loadDevicesRequest struct {
	Login string `json:"login" binding:"required"`
}

// POST /devices/load
func (h *Handler) LoadDevices(c *gin.Context) {
	ctx := c.Request.Context()

	var req loadDevicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request")
		return
	}

	if _, err := h.accounts.OwnsLogin(ctx, userID(c), req.Login); err != nil {
		h.accessError(c, err)
		return
	}

	handle, err := h.sessions.GetOrCreate(ctx, req.Login)
	if err != nil {
		h.internalError(c, "failed to open vendor session", err)
		return
	}

	h.logger.Info(ctx, "loading inventory", "login", req.Login)
	res, err := handle.LoadInventory(ctx)
	if err != nil {
		h.internalError(c, "failed to store inventory", err)
		return
	}
	resultResponse(c, res)
}

type updateDeviceRequest struct {
	NameByUser *string `json:"name_by_user"`
	IsFavorite *bool   `json:"is_favorite"`
}

// PATCH /devices/:id
func (h *Handler) UpdateDevice(c *gin.Context) {
	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request")
		return
	}

	device, err := h.devices.Update(c.Request.Context(), userID(c), c.Param("id"), services.DeviceUpdate{
		NameByUser: req.NameByUser,
		IsFavorite: req.IsFavorite,
	})
	if err != nil {
		h.accessError(c, err)
		return
	}
	goodResponse(c, "updated", newDeviceView(device))
}

// POST /devices/:id/open
func (h *Handler) OpenDevice(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	device, err := h.devices.Device(ctx, uid, c.Param("id"))
	if err != nil {
		h.accessError(c, err)
		return
	}

	logins, err := h.accounts.LoginsOf(ctx, uid)
	if err != nil {
		h.internalError(c, "failed to list logins", err)
		return
	}

	var login string
	for _, l := range logins {
		if l.ID == device.LoginID {
			login = l.Login
			break
		}
	}
	if login == "" {
		newErrorResponse(c, http.StatusNotFound, "device not found")
		return
	}

	handle, err := h.sessions.GetOrCreate(ctx, login)
	if err != nil {
		h.internalError(c, "failed to open vendor session", err)
		return
	}
	resultResponse(c, handle.OpenDevice(ctx, device.VendorID))
}

func (h *Handler) internalError(c *gin.Context, message string, err error) {
	h.logger.Error(c.Request.Context(), message, "error", err)
	newErrorResponse(c, http.StatusInternalServerError, message)
}

// accessError maps ownership and lookup failures onto HTTP statuses.
func (h *Handler) accessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorForbidden):
		newErrorResponse(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, common.ErrorNotFound):
		newErrorResponse(c, http.StatusNotFound, "not found")
	default:
		h.internalError(c, "internal error", err)
	}
}
