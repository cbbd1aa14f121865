package keyapi

import (
	"encoding/json"
	"strconv"
	"time"
)

// DeviceCategory is a vendor device listing endpoint.
type DeviceCategory string

const (
	CategoryIntercom DeviceCategory = "intercom"
	CategoryBarrier  DeviceCategory = "barrier"
)

// CaptchaAnswer is sent back with send_code once the user solved a captcha.
type CaptchaAnswer struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// Captcha is the challenge the vendor asks to solve before sending a code.
type Captcha struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type sendCodeRequest struct {
	PhoneNumber   string         `json:"phoneNumber"`
	CaptchaAnswer *CaptchaAnswer `json:"captchaAnswer,omitempty"`
}

type loginRequest struct {
	Code   string  `json:"code"`
	CodeID *string `json:"codeId"`
}

// SendCodeData is the payload of a successful send_code call.
type SendCodeData struct {
	CodeID  string `json:"codeId"`
	Timeout int    `json:"timeout"`
}

// LoginData is the payload of a successful login call.
type LoginData struct {
	AccessToken  string          `json:"accessToken"`
	RawExpiredAt json.RawMessage `json:"expiredAt"`
}

// ExpiresAt decodes expiredAt, which is either an RFC 3339 string or a unix
// timestamp in seconds or milliseconds. Unknown shapes yield nil.
func (d *LoginData) ExpiresAt() *time.Time {
	if len(d.RawExpiredAt) == 0 || string(d.RawExpiredAt) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(d.RawExpiredAt, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil
		}
		return &t
	}

	n, err := strconv.ParseInt(string(d.RawExpiredAt), 10, 64)
	if err != nil {
		return nil
	}
	var t time.Time
	if n > 1e12 {
		t = time.UnixMilli(n)
	} else {
		t = time.Unix(n, 0)
	}
	return &t
}

// Camera is one item of the vendor camera listing.
type Camera struct {
	ID                    string `json:"id"`
	ArchiveLength         *int   `json:"archive_length"`
	ScreenshotURLTemplate string `json:"screenshot_url_template"`
	ScreenshotToken       string `json:"screenshot_token"`
	StreamerToken         string `json:"streamer_token"`
}

// Device is one item of an intercom or barrier listing.
type Device struct {
	ID          string  `json:"id"`
	DeviceType  string  `json:"device_type"`
	CameraID    *string `json:"camera_id"`
	Description string  `json:"description"`
	IsFavorite  bool    `json:"is_favorite"`
	NameByUser  *string `json:"name_by_user"`
}

type envelope[T any] struct {
	Data  *T         `json:"data"`
	Error *errorBody `json:"error"`
}

type camerasData struct {
	Items []Camera `json:"items"`
}

type devicesData struct {
	Devices []Device `json:"devices"`
}

// errorBody covers the error shapes the vendor is known to return.
type errorBody struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`

	CaptchaAnswer *struct {
		Captcha *Captcha `json:"captcha"`
	} `json:"captchaAnswer"`

	SSO *struct {
		IntervalExceeded *struct{} `json:"intervalExceeded"`
	} `json:"sso"`

	OTPCode *struct {
		InvalidCode *struct{} `json:"invalidCode"`
	} `json:"otpCode"`
}
