package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// DocumentRepository defines data access for document metadata using SQL queries only.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record. The store assigns the ID.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID with its owner attached.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns documents with their owners attached.
	List(ctx context.Context, pq PageQuery) ([]model.Document, error)

	// UpdateFileName changes the display name. It returns sql.ErrNoRows if the document does not exist.
	UpdateFileName(ctx context.Context, id, fileName string, updatedAt time.Time) error

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
