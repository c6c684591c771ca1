package repository

import (
	"context"

	"docvault/internal/model"
)

// TokenRepository stores hashed opaque access tokens.
type TokenRepository interface {
	Create(ctx context.Context, t *model.AccessToken) (*model.AccessToken, error)
	FindByHash(ctx context.Context, tokenHash string) (*model.AccessToken, error)
	// DeleteByHash is a no-op when the token does not exist.
	DeleteByHash(ctx context.Context, tokenHash string) error
	// HashesByUser lists the digests of every token issued to userID.
	HashesByUser(ctx context.Context, userID string) ([]string, error)
}
