package common

const (
	// AuthorizationHeaderName carries the local bearer token on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// DeviceIDHeaderName carries the per-handle device-instance id on vendor
	// authorization requests.
	DeviceIDHeaderName = "X-Device-Id"

	// SecretKeySize is the number of random bytes behind a user's signing secret.
	SecretKeySize = 32
)
