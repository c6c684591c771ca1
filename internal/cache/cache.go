// Package cache holds the token lookup cache that sits in front of the token table.
package cache

import (
	"context"
	"time"
)

// TokenCache maps a token digest to the id of the user it authenticates.
type TokenCache interface {
	// Get returns ("", false, nil) on a miss.
	Get(ctx context.Context, tokenHash string) (userID string, ok bool, err error)
	Set(ctx context.Context, tokenHash, userID string, ttl time.Duration) error
	Delete(ctx context.Context, tokenHash string) error
}

// Noop is used when no cache backend is configured; every lookup misses.
type Noop struct{}

var _ TokenCache = Noop{}

func (Noop) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (Noop) Set(context.Context, string, string, time.Duration) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }
