package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/milestone-escrow/backend/internal/http/dto"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/services"
)

type MetaHandler struct {
	fiatPayments bool
}

func NewMetaHandler(fiatPayments bool) *MetaHandler {
	return &MetaHandler{fiatPayments: fiatPayments}
}

type MetaOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var paymentMethodOptions = []MetaOption{
	{ID: string(services.MethodCard), Label: "Card"},
	{ID: string(services.MethodBankTransfer), Label: "Bank transfer"},
	{ID: string(services.MethodACH), Label: "ACH"},
	{ID: string(services.MethodWire), Label: "Wire"},
}

var projectStatusOptions = []MetaOption{
	{ID: models.ProjectStatusInProgress, Label: "In progress"},
	{ID: models.ProjectStatusDraftSubmitted, Label: "Draft submitted"},
	{ID: models.ProjectStatusReleased, Label: "Released"},
	{ID: models.ProjectStatusRefunded, Label: "Refunded"},
	{ID: models.ProjectStatusSplit, Label: "Split"},
}

// GetPaymentMethods lists the accepted methods. Ledger mode takes no method.
func (h *MetaHandler) GetPaymentMethods(c *fiber.Ctx) error {
	if !h.fiatPayments {
		return c.JSON(dto.SuccessResponse{OK: true, Data: []MetaOption{{ID: string(services.MethodLedger), Label: "Ledger wallet"}}})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: paymentMethodOptions})
}

func (h *MetaHandler) GetProjectStatuses(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: projectStatusOptions})
}
