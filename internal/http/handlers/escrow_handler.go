package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/http/dto"
	"github.com/milestone-escrow/backend/internal/middleware"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/services"
	"go.uber.org/zap"
)

type escrowAction func(ctx context.Context, projectID, actorID uuid.UUID) (*models.Project, *chain.Receipt, error)

// EscrowHandler exposes the privileged escrow operations. Actions that move or
// freeze funds require a verification code issued for their purpose.
type EscrowHandler struct {
	escrowService *services.EscrowService
	mfaService    *services.MfaService
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, mfaService *services.MfaService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, mfaService: mfaService, log: log}
}

func (h *EscrowHandler) Deploy(c *fiber.Ctx) error {
	return h.gated(c, services.PurposeEscrowDeploy, h.escrowService.DeployEscrow)
}

func (h *EscrowHandler) Release(c *fiber.Ctx) error {
	return h.gated(c, services.PurposeEscrowRelease, h.escrowService.Release)
}

func (h *EscrowHandler) Refund(c *fiber.Ctx) error {
	return h.gated(c, services.PurposeEscrowRefund, h.escrowService.Refund)
}

func (h *EscrowHandler) Pause(c *fiber.Ctx) error {
	return h.gated(c, services.PurposeEscrowPause, h.escrowService.Pause)
}

func (h *EscrowHandler) Unpause(c *fiber.Ctx) error {
	return h.gated(c, services.PurposeEscrowUnpause, h.escrowService.Unpause)
}

func (h *EscrowHandler) Split(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid project id")
	}

	var req dto.SplitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ClientPercent == nil {
		return badRequest(c, "client_percent is required")
	}
	if _, _, err := chain.SplitShares(*req.ClientPercent); err != nil {
		return respondError(c, h.log, err)
	}

	actorID := middleware.GetUserID(c)
	if err := h.mfaService.Verify(c.UserContext(), actorID, req.Code, services.PurposeEscrowSplit); err != nil {
		return respondError(c, h.log, err)
	}

	project, receipt, err := h.escrowService.Split(c.UserContext(), projectID, actorID, *req.ClientPercent)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(actionResponse(project, receipt))
}

func (h *EscrowHandler) gated(c *fiber.Ctx, purpose string, action escrowAction) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid project id")
	}

	var req dto.EscrowActionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	actorID := middleware.GetUserID(c)
	if err := h.mfaService.Verify(c.UserContext(), actorID, req.Code, purpose); err != nil {
		return respondError(c, h.log, err)
	}

	project, receipt, err := action(c.UserContext(), projectID, actorID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(actionResponse(project, receipt))
}

func (h *EscrowHandler) PayDeposit(c *fiber.Ctx) error {
	return h.pay(c, h.escrowService.PayDeposit)
}

func (h *EscrowHandler) PayBalance(c *fiber.Ctx) error {
	return h.pay(c, h.escrowService.PayBalance)
}

func (h *EscrowHandler) pay(c *fiber.Ctx, fn func(ctx context.Context, projectID, payerID uuid.UUID, method string) (*models.Payment, error)) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid project id")
	}

	var req dto.PaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	payment, err := fn(c.UserContext(), projectID, middleware.GetUserID(c), req.Method)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: payment})
}

func (h *EscrowHandler) AnchorDraft(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid project id")
	}

	var req dto.DraftProofRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	proof, err := h.escrowService.AnchorDraftProof(c.UserContext(), projectID, middleware.GetUserID(c), req.Action, req.Hash, req.PreviousHash)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: proof})
}

func actionResponse(p *models.Project, r *chain.Receipt) dto.EscrowActionResponse {
	resp := dto.EscrowActionResponse{Project: p}
	if r != nil {
		resp.TxHash = r.TxHash
		resp.BlockNumber = r.BlockNumber
	}
	return resp
}
