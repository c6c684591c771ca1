package postgres

import (
	"context"
	"database/sql"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// TokenPostgres is a PostgreSQL implementation of repository.TokenRepository.
type TokenPostgres struct {
	db *sql.DB
}

// NewTokenPostgres creates a new TokenPostgres repository.
func NewTokenPostgres(db *sql.DB) *TokenPostgres {
	return &TokenPostgres{db: db}
}

var _ repository.TokenRepository = (*TokenPostgres)(nil)

// Create stores a token digest.
func (r *TokenPostgres) Create(ctx context.Context, t *model.AccessToken) (*model.AccessToken, error) {
	const q = `
		INSERT INTO auth_access_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, token_hash, expires_at, created_at
	`
	var expiresAt sql.NullTime
	if t.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *t.ExpiresAt, Valid: true}
	}
	row := r.db.QueryRowContext(ctx, q, t.UserID, t.TokenHash, expiresAt, t.CreatedAt)
	return scanToken(row)
}

// FindByHash looks a token up by its digest.
func (r *TokenPostgres) FindByHash(ctx context.Context, tokenHash string) (*model.AccessToken, error) {
	const q = `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM auth_access_tokens
		WHERE token_hash = $1
	`
	return scanToken(r.db.QueryRowContext(ctx, q, tokenHash))
}

// DeleteByHash revokes a token. Deleting an unknown digest is not an error.
func (r *TokenPostgres) DeleteByHash(ctx context.Context, tokenHash string) error {
	const q = `DELETE FROM auth_access_tokens WHERE token_hash = $1`
	_, err := r.db.ExecContext(ctx, q, tokenHash)
	return err
}

// HashesByUser returns the digests held by userID, oldest first.
func (r *TokenPostgres) HashesByUser(ctx context.Context, userID string) ([]string, error) {
	const q = `
		SELECT token_hash
		FROM auth_access_tokens
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func scanToken(s rowScanner) (*model.AccessToken, error) {
	var (
		t         model.AccessToken
		expiresAt sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		e := expiresAt.Time
		t.ExpiresAt = &e
	}
	return &t, nil
}
