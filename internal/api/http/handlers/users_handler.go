package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-checker/internal/api/dto"
	"github.com/spec-kit/request-checker/internal/service"
)

// UsersHandler exposes the session user and the assignee directory.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Me GET /me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListPartners GET /users/partners.
func (h *UsersHandler) ListPartners(c *fiber.Ctx) error {
	partners, err := h.users.ListPartners(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(partners))
	for i := range partners {
		items = append(items, dto.NewUserResponse(&partners[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
