package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"docvault/internal/cache"
	"docvault/internal/database"
	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/validation"
)

// TokenPrefix marks opaque access tokens issued by this service.
const TokenPrefix = "oat_"

const tokenEntropyBytes = 32

// decoyPassword is hashed once to give unknown-email logins a real hash to compare against.
const decoyPassword = "docvault-decoy-password"

// RegisterInput is a self-service sign up.
type RegisterInput struct {
	FullName *string
	Email    string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  model.UserSummary `json:"user"`
	Token string            `json:"token"`
}

// AuthOptions tunes token issuance.
type AuthOptions struct {
	// TokenTTL bounds a token's lifetime; zero issues tokens that never expire.
	TokenTTL time.Duration
	// CacheTTL bounds how long a resolved token stays in the cache.
	CacheTTL time.Duration
	Now      func() time.Time
}

// AuthService handles sign up, sign in and opaque bearer tokens.
type AuthService interface {
	// Register rejects an email that is already taken with a *ValidationError.
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	// Login returns ErrInvalidCredentials for an unknown email or a wrong password.
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Logout revokes the token. Revoking an unknown token succeeds.
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a bearer token to a user id or returns ErrUnauthenticated.
	Authenticate(ctx context.Context, token string) (string, error)
	// Me returns the public view of the authenticated user.
	Me(ctx context.Context, userID string) (*model.UserSummary, error)
}

type authService struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	cache  cache.TokenCache
	hasher PasswordHasher
	opts   AuthOptions

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService constructs an AuthService. A nil cache disables caching.
func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, tc cache.TokenCache, hasher PasswordHasher, opts AuthOptions) AuthService {
	if tc == nil {
		tc = cache.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &authService{users: users, tokens: tokens, cache: tc, hasher: hasher, opts: opts}
}

// HashToken returns the hex SHA-256 digest stored for a token value.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newTokenValue() (string, error) {
	b := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	res := validation.Register(email, in.Password)
	if res.OK() {
		if _, err := s.users.FindByEmail(ctx, email); err == nil {
			res.Add("email", "email has already been taken")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	if !res.OK() {
		return nil, newValidationError(res)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now().UTC()
	u, err := s.users.Create(ctx, &model.User{
		FullName:     in.FullName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fieldError("email", "email has already been taken")
		}
		return nil, err
	}

	token, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("user_registered", zap.String("user_id", u.ID))
	return &AuthResult{User: u.Summary(), Token: token}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if res := validation.Login(email, password); !res.OK() {
		return nil, newValidationError(res)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Spend the same bcrypt work as a wrong password.
			s.compareDecoy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u.Summary(), Token: token}, nil
}

func (s *authService) compareDecoy(password string) {
	s.decoyOnce.Do(func() {
		h, err := s.hasher.Hash(decoyPassword)
		if err != nil {
			logger.L().Warn("decoy_hash_failed", zap.Error(err))
			return
		}
		s.decoyHash = h
	})
	if s.decoyHash != "" {
		_ = s.hasher.Compare(s.decoyHash, password)
	}
}

// issue creates a token and persists only its digest.
func (s *authService) issue(ctx context.Context, userID string) (string, error) {
	token, err := newTokenValue()
	if err != nil {
		return "", err
	}
	now := s.opts.Now().UTC()
	rec := &model.AccessToken{
		UserID:    userID,
		TokenHash: HashToken(token),
		CreatedAt: now,
	}
	if s.opts.TokenTTL > 0 {
		exp := now.Add(s.opts.TokenTTL)
		rec.ExpiresAt = &exp
	}
	if _, err := s.tokens.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("store access token: %w", err)
	}
	return token, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthenticated
	}
	h := HashToken(token)
	if err := s.tokens.DeleteByHash(ctx, h); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if err := s.cache.Delete(ctx, h); err != nil {
		logger.FromContext(ctx).Warn("token_cache_evict_failed", zap.Error(err))
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" || !strings.HasPrefix(token, TokenPrefix) {
		return "", ErrUnauthenticated
	}
	h := HashToken(token)
	log := logger.FromContext(ctx)

	userID, ok, err := s.cache.Get(ctx, h)
	if err != nil {
		log.Warn("token_cache_lookup_failed", zap.Error(err))
	} else if ok {
		return userID, nil
	}

	rec, err := s.tokens.FindByHash(ctx, h)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUnauthenticated
		}
		return "", err
	}
	now := s.opts.Now()
	if rec.Expired(now) {
		return "", ErrUnauthenticated
	}

	if ttl := s.cacheTTL(rec, now); ttl > 0 {
		if err := s.cache.Set(ctx, h, rec.UserID, ttl); err != nil {
			log.Warn("token_cache_store_failed", zap.Error(err))
		}
	}
	return rec.UserID, nil
}

// cacheTTL never lets a cache entry outlive the token itself. Zero disables caching.
func (s *authService) cacheTTL(rec *model.AccessToken, now time.Time) time.Duration {
	ttl := s.opts.CacheTTL
	if ttl <= 0 {
		return 0
	}
	if rec.ExpiresAt != nil {
		if left := rec.ExpiresAt.Sub(now); left < ttl {
			ttl = left
		}
	}
	return ttl
}

func (s *authService) Me(ctx context.Context, userID string) (*model.UserSummary, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	sum := u.Summary()
	return &sum, nil
}
