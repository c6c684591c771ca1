package model

import "time"

// Document represents a stored PDF and the account that owns it.
// FilePath points at the stored binary (absolute path for the local content
// directory, object key for an object store). Owner is populated only by reads
// that join the users table, and is nil once the owning user has been deleted.
type Document struct {
	ID        string       `json:"id"`
	FilePath  string       `json:"filePath"`
	FileName  string       `json:"fileName"`
	UserID    *string      `json:"userId"`
	Owner     *UserSummary `json:"owner,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
