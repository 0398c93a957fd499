package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/cohab/internal/middleware"
	"github.com/mansoorceksport/cohab/internal/service"
)

// UserHandler handles account administration
type UserHandler struct {
	authService *service.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// List handles GET /v1/users
func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.authService.ListUsers(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// Create handles POST /v1/users
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in service.CreateUserInput
	if err := parseAndValidate(c, &in); err != nil {
		return handleError(c, err)
	}

	user, err := h.authService.CreateUser(c.UserContext(), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// Deactivate handles DELETE /v1/users/:id
func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.authService.DeactivateUser(c.UserContext(), middleware.CurrentUserID(c), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Usuario desactivado"})
}
