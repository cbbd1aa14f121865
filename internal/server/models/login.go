package models

import "time"

// Login is a vendor account (phone number) owned by exactly one User.
// VendorToken and ExpiresAt are the last vendor session obtained for it.
type Login struct {
	ID          string
	Login       string
	UserID      string
	VendorToken string
	ExpiresAt   *time.Time
	Address     string
	CreatedAt   time.Time
}

// IsExpired reports whether the stored vendor token is unusable at now.
// An unknown expiry counts as expired.
func (l *Login) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return true
	}
	return !now.Before(*l.ExpiresAt)
}
