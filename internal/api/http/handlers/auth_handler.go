package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/govdesk/internal/api/dto"
	"github.com/spec-kit/govdesk/internal/service"
	apperrors "github.com/spec-kit/govdesk/pkg/util/errorutil"
)

// AuthHandler serves customer registration and customer/staff login.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterCustomer POST /auth/customers/register.
func (h *AuthHandler) RegisterCustomer(c *fiber.Ctx) error {
	var req dto.RegisterCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	customer, err := h.authService.RegisterCustomer(c.UserContext(), req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": fiber.Map{
		"id":    customer.ID,
		"name":  customer.Name,
		"email": customer.Email,
	}})
}

// LoginCustomer POST /auth/customers/login.
func (h *AuthHandler) LoginCustomer(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, customer, err := h.authService.LoginCustomer(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Subject:   "customer",
		Name:      customer.Name,
	})
}

// LoginStaff POST /auth/staff/login.
func (h *AuthHandler) LoginStaff(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, staff, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Subject:   "staff",
		Name:      staff.Name,
	})
}
