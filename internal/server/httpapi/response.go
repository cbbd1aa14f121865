package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/dmitrijs2005/intercomkey/internal/server/sessions"
	"github.com/gin-gonic/gin"
)

// response is the envelope of every reply.
type response struct {
	Status  sessions.Status `json:"status"`
	Reason  sessions.Reason `json:"reason,omitempty"`
	Message string          `json:"message"`
	Data    any             `json:"data"`
}

func goodResponse(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, response{Status: sessions.StatusGood, Message: message, Data: data})
}

func newErrorResponse(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, response{Status: sessions.StatusBad, Message: message})
}

// resultResponse reports a handle outcome. Vendor-side failures are still
// answered with 200; the envelope status tells them apart.
func resultResponse(c *gin.Context, r sessions.Result) {
	var data any
	if r.Data != nil {
		data = r.Data
	}
	c.JSON(http.StatusOK, response{Status: r.Status, Reason: r.Reason, Message: r.Message, Data: data})
}

type loginView struct {
	ID        string     `json:"id"`
	Login     string     `json:"login"`
	Address   string     `json:"address,omitempty"`
	ExpiresAt *time.Time `json:"expires_at"`
	Expired   bool       `json:"expired"`
}

func newLoginView(l *models.Login, now time.Time) loginView {
	return loginView{
		ID:        l.ID,
		Login:     l.Login,
		Address:   l.Address,
		ExpiresAt: l.ExpiresAt,
		Expired:   l.IsExpired(now),
	}
}

type deviceView struct {
	ID          string    `json:"id"`
	VendorID    string    `json:"vendor_id"`
	Type        string    `json:"device_type"`
	CameraID    *string   `json:"camera_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	NameByUser  *string   `json:"name_by_user"`
	IsFavorite  bool      `json:"is_favorite"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newDeviceView(d *models.Device) deviceView {
	return deviceView{
		ID:          d.ID,
		VendorID:    d.VendorID,
		Type:        string(d.Type),
		CameraID:    d.CameraID,
		Name:        d.DisplayName(),
		Description: d.Description,
		NameByUser:  d.NameByUser,
		IsFavorite:  d.IsFavorite,
		UpdatedAt:   d.UpdatedAt,
	}
}

type cameraView struct {
	ID                    string    `json:"id"`
	VendorID              string    `json:"vendor_id"`
	ArchiveLength         *int      `json:"archive_length"`
	ScreenshotURLTemplate string    `json:"screenshot_url_template"`
	ScreenshotToken       string    `json:"screenshot_token"`
	StreamerToken         string    `json:"streamer_token"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func newCameraView(c *models.Camera) cameraView {
	return cameraView{
		ID:                    c.ID,
		VendorID:              c.VendorID,
		ArchiveLength:         c.ArchiveLength,
		ScreenshotURLTemplate: c.ScreenshotURLTemplate,
		ScreenshotToken:       c.ScreenshotToken,
		StreamerToken:         c.StreamerToken,
		UpdatedAt:             c.UpdatedAt,
	}
}
