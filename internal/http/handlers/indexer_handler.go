package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/milestone-escrow/backend/internal/http/dto"
	"github.com/milestone-escrow/backend/internal/middleware"
	"github.com/milestone-escrow/backend/internal/services"
	"go.uber.org/zap"
)

type IndexerHandler struct {
	indexer *services.IndexerService
	log     *zap.Logger
}

func NewIndexerHandler(indexer *services.IndexerService, log *zap.Logger) *IndexerHandler {
	return &IndexerHandler{indexer: indexer, log: log}
}

// Run indexes all escrow contracts synchronously. Safe to call while the
// chain-indexer process is running.
func (h *IndexerHandler) Run(c *fiber.Ctx) error {
	indexed, err := h.indexer.IndexAll(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Info("manual index run",
		zap.Int("indexed", indexed),
		zap.String("user_id", middleware.GetUserID(c).String()),
	)
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.IndexRunResponse{Indexed: indexed}})
}
