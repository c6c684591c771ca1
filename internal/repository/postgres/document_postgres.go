package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// selectDocumentWithOwner eager-loads the owner. The join is LEFT so orphaned
// documents are still returned.
const selectDocumentWithOwner = `
		SELECT d.id, d.file_path, d.file_name, d.user_id, d.created_at, d.updated_at,
		       u.id, u.email, u.full_name
		FROM documents d
		LEFT JOIN users u ON u.id = d.user_id
`

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (file_path, file_name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, file_path, file_name, user_id, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		doc.FilePath,
		doc.FileName,
		nullString(doc.UserID),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	var (
		out    model.Document
		userID sql.NullString
	)
	if err := row.Scan(
		&out.ID,
		&out.FilePath,
		&out.FileName,
		&userID,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	out.UserID = stringPtr(userID)
	return &out, nil
}

// FindByID fetches a single document by its ID together with its owner.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	row := r.db.QueryRowContext(ctx, selectDocumentWithOwner+`WHERE d.id = $1`, id)
	return scanDocument(row)
}

// List returns documents with owners, newest first.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) ([]model.Document, error) {
	q := selectDocumentWithOwner + `
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, q, pq.LimitArg(), pq.OffsetArg())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateFileName renames a document. Missing rows surface as sql.ErrNoRows.
func (r *DocumentPostgres) UpdateFileName(ctx context.Context, id, fileName string, updatedAt time.Time) error {
	const q = `UPDATE documents SET file_name = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, fileName, updatedAt)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func scanDocument(s rowScanner) (*model.Document, error) {
	var (
		d                   model.Document
		userID              sql.NullString
		ownerID, ownerEmail sql.NullString
		ownerFullName       sql.NullString
	)
	if err := s.Scan(
		&d.ID,
		&d.FilePath,
		&d.FileName,
		&userID,
		&d.CreatedAt,
		&d.UpdatedAt,
		&ownerID,
		&ownerEmail,
		&ownerFullName,
	); err != nil {
		return nil, err
	}
	d.UserID = stringPtr(userID)
	if ownerID.Valid {
		d.Owner = &model.UserSummary{
			ID:       ownerID.String,
			Email:    ownerEmail.String,
			FullName: stringPtr(ownerFullName),
		}
	}
	return &d, nil
}
