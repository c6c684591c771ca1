package model

import "time"

// User is an account. PasswordHash is a bcrypt hash and is never serialized.
type User struct {
	ID           string    `json:"id"`
	FullName     *string   `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the public projection returned by the auth endpoints and
// embedded as a document owner.
type UserSummary struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"fullName"`
}

// Summary projects u to its public fields.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, FullName: u.FullName}
}
