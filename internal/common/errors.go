// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal  = errors.New("internal error")
	ErrorForbidden = errors.New("forbidden")

	// invalid, malformed or expired local token
	ErrInvalidToken = errors.New("invalid token")
)
