package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docvault/internal/logger"
	"docvault/internal/service"
)

const (
	// AuthUserLocalKey holds the authenticated user id.
	AuthUserLocalKey = "auth_user_id"
	// AuthTokenLocalKey holds the raw bearer token of the request.
	AuthTokenLocalKey = "auth_token"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthUserID returns the user id set by RequireAuth or OptionalAuth.
func AuthUserID(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(AuthUserLocalKey).(string)
	return id, ok && id != ""
}

// AuthToken returns the bearer token that authenticated the request.
func AuthToken(c *fiber.Ctx) string {
	s, _ := c.Locals(AuthTokenLocalKey).(string)
	return s
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, service.ErrUnauthenticated.Error())
		}
		userID, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				return fiber.NewError(fiber.StatusUnauthorized, err.Error())
			}
			return err
		}
		c.Locals(AuthUserLocalKey, userID)
		c.Locals(AuthTokenLocalKey, token)
		return c.Next()
	}
}

// OptionalAuth resolves a bearer token when one is sent. Requests without a
// usable token continue anonymously.
func OptionalAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return c.Next()
		}
		userID, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			logger.FromContext(c.UserContext()).Debug("optional_auth_ignored", zap.Error(err))
			return c.Next()
		}
		c.Locals(AuthUserLocalKey, userID)
		c.Locals(AuthTokenLocalKey, token)
		return c.Next()
	}
}
