package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/http/dto"
	"github.com/milestone-escrow/backend/internal/middleware"
	"github.com/milestone-escrow/backend/internal/services"
	"go.uber.org/zap"
)

// errorStatus maps a service error to the response status and the message
// safe to show the caller.
func errorStatus(err error) (int, string) {
	var unconfirmed *chain.UnconfirmedError
	switch {
	case errors.As(err, &unconfirmed):
		return fiber.StatusAccepted, "transaction submitted, confirmation pending"

	case errors.Is(err, chain.ErrInvalidHash),
		errors.Is(err, chain.ErrInvalidPercent),
		errors.Is(err, chain.ErrInvalidAddress),
		errors.Is(err, chain.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidPaymentMethod),
		errors.Is(err, services.ErrInvalidProject),
		errors.Is(err, services.ErrInvalidUser):
		return fiber.StatusBadRequest, err.Error()

	case errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, "forbidden"

	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "not found"

	case errors.Is(err, services.ErrTerminalStatus),
		errors.Is(err, services.ErrEscrowPaused),
		errors.Is(err, services.ErrEscrowNotPaused),
		errors.Is(err, services.ErrNoEscrow),
		errors.Is(err, services.ErrAlreadyDeployed),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrStaleTransition):
		return fiber.StatusConflict, errorMessage(err)

	case errors.Is(err, services.ErrMissingSigningKey):
		return fiber.StatusServiceUnavailable, "signing wallet is not available"

	case errors.Is(err, chain.ErrReverted), errors.Is(err, services.ErrLedger):
		return fiber.StatusBadGateway, "ledger operation failed"
	}
	return fiber.StatusInternalServerError, "internal error"
}

// errorMessage unwraps to the outermost sentinel text, dropping internal context.
func errorMessage(err error) string {
	for _, sentinel := range []error{
		services.ErrTerminalStatus, services.ErrEscrowPaused, services.ErrEscrowNotPaused,
		services.ErrNoEscrow, services.ErrAlreadyDeployed, services.ErrInvalidTransition,
		services.ErrStaleTransition,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, msg := errorStatus(err)

	var unconfirmed *chain.UnconfirmedError
	if errors.As(err, &unconfirmed) {
		return c.Status(status).JSON(dto.PendingResponse{Error: msg, TxHash: unconfirmed.TxHash})
	}

	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("request_id", reqID), zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: reqID})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}
