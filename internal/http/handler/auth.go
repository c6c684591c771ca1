package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

type registerRequest struct {
	FullName *string `json:"fullName"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	User *model.UserSummary `json:"user"`
}

// Register creates an account and signs it in.
//
//	@Summary	Register
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		registerRequest	true	"credentials"
//	@Success	201		{object}	service.AuthResult
//	@Failure	400		{object}	errorPayload
//	@Router		/auth/register [post]
func Register(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := auth.Register(c.UserContext(), service.RegisterInput{
			FullName: req.FullName,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// Login verifies credentials and issues a token.
//
//	@Summary	Login
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		loginRequest	true	"credentials"
//	@Success	200		{object}	service.AuthResult
//	@Failure	400		{object}	errorPayload
//	@Failure	401		{object}	errorPayload
//	@Router		/auth/login [post]
func Login(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := auth.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// Logout revokes the token of the current request. Must run after middleware.RequireAuth.
//
//	@Summary	Logout
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	messagePayload
//	@Failure	401	{object}	errorPayload
//	@Router		/auth/logout [post]
func Logout(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Logout(c.UserContext(), middleware.AuthToken(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messagePayload{Message: "Logged out successfully"})
	}
}

// Me returns the authenticated user. Must run after middleware.RequireAuth.
//
//	@Summary	Current user
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	meResponse
//	@Failure	401	{object}	errorPayload
//	@Router		/auth/me [get]
func Me(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := middleware.AuthUserID(c)
		u, err := auth.Me(c.UserContext(), uid)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(meResponse{User: u})
	}
}
