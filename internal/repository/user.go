package repository

import (
	"context"

	"docvault/internal/model"
)

// UserRepository defines data access for accounts.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail matches the stored email exactly.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, pq PageQuery) ([]model.User, error)
	// Update overwrites every mutable column of u. It returns sql.ErrNoRows if u.ID does not exist.
	Update(ctx context.Context, u *model.User) (*model.User, error)
	// Delete returns sql.ErrNoRows if no row matched.
	Delete(ctx context.Context, id string) error
}
