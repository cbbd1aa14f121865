// Package models holds the persisted entities of the server.
package models

import "time"

// User is a local account. SecretKey is empty until the first token is minted
// and changes only on rotation.
type User struct {
	ID         string
	SecretKey  string
	LocalToken string
	CreatedAt  time.Time
}

// HasSecret reports whether a signing secret has been generated.
func (u *User) HasSecret() bool {
	return u.SecretKey != ""
}
