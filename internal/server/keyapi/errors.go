package keyapi

import (
	"errors"
	"fmt"
)

var (
	ErrCaptchaRequired   = errors.New("captcha required")
	ErrRateLimited       = errors.New("too many code requests")
	ErrInvalidCode       = errors.New("invalid confirmation code")
	ErrUnauthorized      = errors.New("vendor token rejected")
	ErrUnexpectedStatus  = errors.New("unexpected vendor status")
	ErrMalformedResponse = errors.New("malformed vendor response")
)

// CaptchaError carries the challenge to show to the user.
type CaptchaError struct {
	Captcha Captcha
}

func (e *CaptchaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCaptchaRequired, e.Captcha.ID)
}

func (e *CaptchaError) Unwrap() error {
	return ErrCaptchaRequired
}

// StatusError is returned for statuses without a dedicated error.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("vendor status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("vendor status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
