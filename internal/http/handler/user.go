package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

type createUserRequest struct {
	FullName *string `json:"fullName"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
}

// updateUserRequest fields left out of the body are not changed.
type updateUserRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// ListUsers godoc
//
//	@Summary	List users
//	@Tags		users
//	@Produce	json
//	@Param		limit	query		int	false	"page size, 0 for all"
//	@Param		offset	query		int	false	"rows to skip"
//	@Success	200		{array}		model.User
//	@Router		/users [get]
func ListUsers(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, code := pageParams(c)
		if code != "" {
			return writeError(c, fiber.StatusBadRequest, code, "invalid pagination parameter")
		}
		users, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(users)
	}
}

// GetUser godoc
//
//	@Summary	Get a user
//	@Tags		users
//	@Produce	json
//	@Param		id	path		string	true	"user id"
//	@Success	200	{object}	model.User
//	@Failure	404	{object}	errorPayload
//	@Router		/users/{id} [get]
func GetUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		u, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(u)
	}
}

// CreateUser godoc
//
//	@Summary	Create a user
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		body	body		createUserRequest	true	"user"
//	@Success	201		{object}	model.User
//	@Failure	400		{object}	errorPayload
//	@Failure	409		{object}	errorPayload
//	@Router		/users [post]
func CreateUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createUserRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		u, err := svc.Create(c.UserContext(), service.CreateUserInput{
			FullName: req.FullName,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// UpdateUser applies a partial update.
//
//	@Summary	Update a user
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"user id"
//	@Param		body	body		updateUserRequest	true	"fields to change"
//	@Success	200		{object}	model.User
//	@Failure	404		{object}	errorPayload
//	@Failure	409		{object}	errorPayload
//	@Router		/users/{id} [put]
func UpdateUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		var req updateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		u, err := svc.Update(c.UserContext(), id, service.UpdateUserInput{
			FullName: req.FullName,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(u)
	}
}

// DeleteUser removes an account; its documents are kept without an owner.
//
//	@Summary	Delete a user
//	@Tags		users
//	@Produce	json
//	@Param		id	path		string	true	"user id"
//	@Success	200	{object}	messagePayload
//	@Failure	404	{object}	errorPayload
//	@Router		/users/{id} [delete]
func DeleteUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messagePayload{Message: "User deleted successfully"})
	}
}
