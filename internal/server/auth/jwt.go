// Package auth mints and verifies local session tokens. Every user signs with
// its own key, so tokens of one user never verify against another user's key.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard claims plus the owning user.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// KeyLookup resolves the signing key of a user.
type KeyLookup func(userID string) ([]byte, error)

var errEmptyKey = errors.New("empty signing key")

func GenerateToken(userID string, key []byte, validityDuration time.Duration) (string, error) {
	if len(key) == 0 {
		return "", errEmptyKey
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
	})

	return token.SignedString(key)
}

// VerifyToken checks signature and expiry against key. It never returns an
// error: any failure yields (nil, false).
func VerifyToken(tokenString string, key []byte) (*Claims, bool) {
	return VerifyTokenWith(tokenString, func(string) ([]byte, error) { return key, nil })
}

// VerifyTokenWith is VerifyToken for callers that only learn the key from
// the token's subject.
func VerifyTokenWith(tokenString string, lookup KeyLookup) (*Claims, bool) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		c, ok := t.Claims.(*Claims)
		if !ok || c.UserID == "" {
			return nil, jwt.ErrTokenInvalidClaims
		}
		key, err := lookup(c.UserID)
		if err != nil {
			return nil, err
		}
		if len(key) == 0 {
			return nil, errEmptyKey
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, false
	}

	return claims, true
}
