package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/milestone-escrow/backend/internal/http/dto"
	"github.com/milestone-escrow/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// RequestCode always answers 202 so the endpoint does not reveal registered emails.
func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var req dto.RequestCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return badRequest(c, "email is required")
	}

	if err := h.authService.RequestCode(c.UserContext(), req.Email); err != nil {
		h.log.Error("sign-in code delivery failed", zap.Error(err))
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.SuccessResponse{OK: true})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Code == "" {
		return badRequest(c, "email and code are required")
	}

	token, user, err := h.authService.Login(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.AuthResponse{
		Token: token,
		User:  user,
	})
}
