package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/http/dto"
	"github.com/milestone-escrow/backend/internal/middleware"
	"github.com/milestone-escrow/backend/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	log            *zap.Logger
}

func NewProjectHandler(projectService *services.ProjectService, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, log: log}
}

func viewer(c *fiber.Ctx) services.Viewer {
	return services.Viewer{UserID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	var req dto.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return badRequest(c, "invalid client_id")
	}
	deposit, err := decimal.NewFromString(req.DepositAmount)
	if err != nil {
		return badRequest(c, "invalid deposit_amount")
	}
	balance := decimal.Zero
	if req.BalanceAmount != "" {
		if balance, err = decimal.NewFromString(req.BalanceAmount); err != nil {
			return badRequest(c, "invalid balance_amount")
		}
	}

	project, err := h.projectService.Create(c.UserContext(), middleware.GetUserID(c), services.CreateProjectInput{
		Title:         req.Title,
		ClientID:      clientID,
		DepositAmount: deposit,
		BalanceAmount: balance,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: project})
}

func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid project id")
	}

	project, err := h.projectService.Get(c.UserContext(), id, viewer(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: project})
}

func (h *ProjectHandler) GetTimeline(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid project id")
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	entries, err := h.projectService.Timeline(c.UserContext(), id, viewer(c), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *ProjectHandler) GetChainEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid project id")
	}

	list, err := h.projectService.ChainEvents(c.UserContext(), id, viewer(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

func (h *ProjectHandler) GetPayments(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid project id")
	}

	list, err := h.projectService.Payments(c.UserContext(), id, viewer(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

func (h *ProjectHandler) ListNotifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	unread := c.QueryBool("unread", false)

	list, err := h.projectService.Notifications(c.UserContext(), middleware.GetUserID(c), unread, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

func (h *ProjectHandler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid notification id")
	}

	if err := h.projectService.MarkNotificationRead(c.UserContext(), middleware.GetUserID(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
