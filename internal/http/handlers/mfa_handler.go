package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/milestone-escrow/backend/internal/http/dto"
	"github.com/milestone-escrow/backend/internal/middleware"
	"github.com/milestone-escrow/backend/internal/services"
	"go.uber.org/zap"
)

var issuablePurposes = map[string]struct{}{
	"":                            {},
	services.PurposeEscrowDeploy:  {},
	services.PurposeEscrowRelease: {},
	services.PurposeEscrowRefund:  {},
	services.PurposeEscrowSplit:   {},
	services.PurposeEscrowPause:   {},
	services.PurposeEscrowUnpause: {},
}

type MfaHandler struct {
	mfaService *services.MfaService
	log        *zap.Logger
}

func NewMfaHandler(mfaService *services.MfaService, log *zap.Logger) *MfaHandler {
	return &MfaHandler{mfaService: mfaService, log: log}
}

// IssueCode emails a verification code to the caller.
func (h *MfaHandler) IssueCode(c *fiber.Ctx) error {
	var req dto.IssueCodeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	if _, ok := issuablePurposes[req.Purpose]; !ok {
		return badRequest(c, "unknown purpose")
	}

	expiresAt, err := h.mfaService.Issue(c.UserContext(), middleware.GetUserID(c), req.Purpose)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{
		OK:   true,
		Data: dto.CodeIssuedResponse{ExpiresAt: expiresAt.UTC().Format(time.RFC3339)},
	})
}
