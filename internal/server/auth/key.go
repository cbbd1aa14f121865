package auth

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const signingKeyInfo = "intercomkey local session v1"

// SigningKey derives the HMAC key of a user from the server master key and
// the user's secret. Changing either changes the key.
func SigningKey(master, userSecret []byte) ([]byte, error) {
	if len(userSecret) == 0 {
		return nil, errors.New("user secret is empty")
	}

	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, userSecret, master, []byte(signingKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
