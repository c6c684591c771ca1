package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docvault/internal/cache"
	"docvault/internal/database"
	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/validation"
)

// CreateUserInput is the administrative create payload.
type CreateUserInput struct {
	FullName *string
	Email    string
	Password string
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
// An empty Password keeps the current one.
type UpdateUserInput struct {
	FullName *string
	Email    *string
	Password *string
}

// UserService is the administrative account CRUD.
type UserService interface {
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	// Create returns ErrConflict when the email is already taken.
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	// Update returns ErrConflict when the new email belongs to another user.
	Update(ctx context.Context, id string, in UpdateUserInput) (*model.User, error)
	// Delete removes the account and evicts its cached tokens. Its documents
	// are kept without an owner.
	Delete(ctx context.Context, id string) error
}

type userService struct {
	repo   repository.UserRepository
	tokens repository.TokenRepository
	cache  cache.TokenCache
	hasher PasswordHasher
	now    func() time.Time
}

// NewUserService constructs a UserService. tokens and tc are the stores the
// AuthService reads, so a deleted account stops authenticating at once.
// A nil cache disables eviction.
func NewUserService(repo repository.UserRepository, tokens repository.TokenRepository, tc cache.TokenCache, hasher PasswordHasher) UserService {
	if tc == nil {
		tc = cache.Noop{}
	}
	return &userService{repo: repo, tokens: tokens, cache: tc, hasher: hasher, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func (s *userService) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if res := validation.CreateUser(email, in.Password); !res.OK() {
		return nil, newValidationError(res)
	}

	if taken, err := s.emailOwner(ctx, email); err != nil {
		return nil, err
	} else if taken != "" {
		return nil, ErrConflict
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u, err := s.repo.Create(ctx, &model.User{
		FullName:     in.FullName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	logger.FromContext(ctx).Info("user_created", zap.String("user_id", u.ID))
	return u, nil
}

func (s *userService) Update(ctx context.Context, id string, in UpdateUserInput) (*model.User, error) {
	var email *string
	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		email = &e
	}
	if res := validation.UpdateUser(email, in.Password); !res.OK() {
		return nil, newValidationError(res)
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if email != nil && *email != u.Email {
		owner, err := s.emailOwner(ctx, *email)
		if err != nil {
			return nil, err
		}
		if owner != "" && owner != u.ID {
			return nil, ErrConflict
		}
		u.Email = *email
	}
	if in.FullName != nil {
		u.FullName = in.FullName
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = s.now().UTC()

	out, err := s.repo.Update(ctx, u)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		case database.IsUniqueViolation(err):
			return nil, ErrConflict
		}
		return nil, err
	}
	return out, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	// Token rows cascade with the user, so collect their digests first.
	hashes, err := s.tokens.HashesByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("list access tokens: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	log := logger.FromContext(ctx)
	for _, h := range hashes {
		if err := s.cache.Delete(ctx, h); err != nil {
			log.Warn("token_cache_evict_failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	log.Info("user_deleted", zap.String("user_id", id), zap.Int("tokens_revoked", len(hashes)))
	return nil
}

// emailOwner returns the id of the user holding email, or "" if it is free.
func (s *userService) emailOwner(ctx context.Context, email string) (string, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return u.ID, nil
}
