// Package model contains domain models/data structures.
// Keep it free of persistence tags; repositories map rows by hand.
package model

import "time"

// AccessToken is the stored half of an opaque bearer token. Only the SHA-256
// digest of the token value is persisted.
type AccessToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the token has a deadline that is not after now.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
