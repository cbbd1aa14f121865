// Package keyapi is a typed client for the intercom vendor REST API.
package keyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
)

const maxBodySize = 4 << 20

// Endpoints are the vendor base URLs, without trailing slash.
type Endpoints struct {
	Identity  string
	Household string
	Video     string
}

type Client struct {
	http      *http.Client
	endpoints Endpoints
}

func NewClient(endpoints Endpoints, timeout time.Duration) *Client {
	return NewClientWithHTTP(endpoints, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP lets callers supply their own transport.
func NewClientWithHTTP(endpoints Endpoints, hc *http.Client) *Client {
	endpoints.Identity = strings.TrimRight(endpoints.Identity, "/")
	endpoints.Household = strings.TrimRight(endpoints.Household, "/")
	endpoints.Video = strings.TrimRight(endpoints.Video, "/")
	return &Client{http: hc, endpoints: endpoints}
}

// SendCode asks the vendor to text a confirmation code to phone.
func (c *Client) SendCode(ctx context.Context, deviceID, phone string, captcha *CaptchaAnswer) (*SendCodeData, error) {
	body := sendCodeRequest{PhoneNumber: phone, CaptchaAnswer: captcha}

	status, env, err := doJSON[SendCodeData](ctx, c, http.MethodPost,
		c.endpoints.Identity+"/api/v1/authorization/send_code", deviceID, "", body)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		if env.Data == nil || env.Data.CodeID == "" {
			return nil, fmt.Errorf("%w: no codeId", ErrMalformedResponse)
		}
		return env.Data, nil
	case status == http.StatusBadRequest && env.Error != nil:
		if ca := env.Error.CaptchaAnswer; ca != nil {
			e := &CaptchaError{}
			if ca.Captcha != nil {
				e.Captcha = *ca.Captcha
			}
			return nil, e
		}
		if env.Error.SSO != nil {
			return nil, ErrRateLimited
		}
	}
	return nil, statusError(status, env.Error)
}

// Login exchanges a confirmation code for a vendor access token. An empty
// codeID is sent as null.
func (c *Client) Login(ctx context.Context, deviceID, code, codeID string) (*LoginData, error) {
	body := loginRequest{Code: code}
	if codeID != "" {
		body.CodeID = &codeID
	}

	status, env, err := doJSON[LoginData](ctx, c, http.MethodPost,
		c.endpoints.Identity+"/api/v1/authorization/login", deviceID, "", body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusOK {
		if env.Data == nil || env.Data.AccessToken == "" {
			return nil, fmt.Errorf("%w: no accessToken", ErrMalformedResponse)
		}
		return env.Data, nil
	}
	if status == http.StatusBadRequest && env.Error != nil && env.Error.OTPCode != nil {
		return nil, ErrInvalidCode
	}
	return nil, statusError(status, env.Error)
}

// Cameras lists the cameras visible to the token owner.
func (c *Client) Cameras(ctx context.Context, token string) ([]Camera, error) {
	q := url.Values{"limit": {"100"}, "offset": {"0"}}

	status, env, err := doJSON[camerasData](ctx, c, http.MethodGet,
		c.endpoints.Video+"/api/v1/cameras?"+q.Encode(), "", token, nil)
	if err != nil {
		return nil, err
	}
	if err := checkAuthorized(status, env.Error); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: no data", ErrMalformedResponse)
	}
	return env.Data.Items, nil
}

// Devices lists intercoms or barriers visible to the token owner.
func (c *Client) Devices(ctx context.Context, token string, category DeviceCategory) ([]Device, error) {
	status, env, err := doJSON[devicesData](ctx, c, http.MethodGet,
		c.endpoints.Household+"/api/v2/app/devices/"+url.PathEscape(string(category)), "", token, nil)
	if err != nil {
		return nil, err
	}
	if err := checkAuthorized(status, env.Error); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: no data", ErrMalformedResponse)
	}
	return env.Data.Devices, nil
}

// OpenDevice triggers the door or barrier with the given vendor id.
func (c *Client) OpenDevice(ctx context.Context, token, deviceID string) error {
	status, env, err := doJSON[struct{}](ctx, c, http.MethodPost,
		c.endpoints.Household+"/api/v2/app/devices/"+url.PathEscape(deviceID)+"/open", "", token, nil)
	if err != nil {
		return err
	}
	return checkAuthorized(status, env.Error)
}

func checkAuthorized(status int, body *errorBody) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return statusError(status, body)
	}
}

func statusError(status int, body *errorBody) error {
	e := &StatusError{StatusCode: status}
	if body != nil {
		e.Code = body.Code
		e.Message = body.Description
	}
	return e
}

// doJSON performs one call and decodes the envelope. Non-JSON bodies are
// tolerated for non-200 statuses so the caller can still map the status.
func doJSON[T any](ctx context.Context, c *Client, method, rawURL, deviceID, token string, payload any) (int, *envelope[T], error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if deviceID != "" {
		req.Header.Set(common.DeviceIDHeaderName, deviceID)
	}
	// the vendor expects the bare token, no scheme
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("vendor request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("vendor response: %w", err)
	}

	env := &envelope[T]{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, env); err != nil && resp.StatusCode == http.StatusOK {
			return 0, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return resp.StatusCode, env, nil
}
