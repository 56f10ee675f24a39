package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/milestone-escrow/backend/internal/config"
	"github.com/milestone-escrow/backend/internal/http/handlers"
	"github.com/milestone-escrow/backend/internal/middleware"
	"github.com/milestone-escrow/backend/internal/ratelimit"
	"github.com/milestone-escrow/backend/internal/rbac"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Mfa     *handlers.MfaHandler
	Project *handlers.ProjectHandler
	Escrow  *handlers.EscrowHandler
	Indexer *handlers.IndexerHandler
	Meta    *handlers.MetaHandler
	WSHub   *handlers.WSHub
}

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	limiter *ratelimit.Limiter,
	h Handlers,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	publicRead := middleware.RateLimit(limiter, "public_read", cfg.PublicReadLimit, cfg.PublicReadWindow)
	codeIssue := middleware.RateLimit(limiter, "mfa_issue", cfg.MfaIssueLimit, cfg.MfaIssueWindow)
	escrowAction := middleware.RateLimit(limiter, "escrow_action", cfg.ActionLimit, cfg.ActionWindow)

	// Auth (public)
	api.Post("/auth/code", codeIssue, h.Auth.RequestCode)
	api.Post("/auth/login", escrowAction, h.Auth.Login)

	// Meta (public, no auth required)
	api.Get("/meta/payment-methods", publicRead, h.Meta.GetPaymentMethods)
	api.Get("/meta/project-statuses", publicRead, h.Meta.GetProjectStatuses)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log))

	// User
	protected.Get("/me", h.User.GetMe)
	protected.Post("/users", middleware.RequirePermission(rbac.PermCreateProject), h.User.Invite)
	protected.Get("/users/:id/audit", middleware.RequirePermission(rbac.PermViewAudit), h.User.GetAuditTrail)

	// Verification codes
	protected.Post("/mfa/codes", codeIssue, h.Mfa.IssueCode)

	// Notifications
	protected.Get("/notifications", h.Project.ListNotifications)
	protected.Post("/notifications/:id/read", h.Project.MarkNotificationRead)

	// Projects
	protected.Post("/projects", middleware.RequirePermission(rbac.PermCreateProject), h.Project.CreateProject)
	protected.Get("/projects/:id", publicRead, h.Project.GetProject)
	protected.Get("/projects/:id/timeline", publicRead, h.Project.GetTimeline)
	protected.Get("/projects/:id/chain-events", publicRead, h.Project.GetChainEvents)
	protected.Get("/projects/:id/payments", publicRead, h.Project.GetPayments)

	// Payments and drafts
	protected.Post("/projects/:id/payments/deposit", middleware.RequirePermission(rbac.PermFundEscrow), escrowAction, h.Escrow.PayDeposit)
	protected.Post("/projects/:id/payments/balance", middleware.RequirePermission(rbac.PermFundEscrow), escrowAction, h.Escrow.PayBalance)
	protected.Post("/projects/:id/drafts", middleware.RequirePermission(rbac.PermAnchorDraft), escrowAction, h.Escrow.AnchorDraft)

	// Escrow (admin, verification code required)
	escrow := protected.Group("/projects/:id/escrow", escrowAction)
	escrow.Post("/deploy", middleware.RequirePermission(rbac.PermDeployEscrow), h.Escrow.Deploy)
	escrow.Post("/release", middleware.RequirePermission(rbac.PermSettleEscrow), h.Escrow.Release)
	escrow.Post("/refund", middleware.RequirePermission(rbac.PermSettleEscrow), h.Escrow.Refund)
	escrow.Post("/split", middleware.RequirePermission(rbac.PermSettleEscrow), h.Escrow.Split)
	escrow.Post("/pause", middleware.RequirePermission(rbac.PermPauseEscrow), h.Escrow.Pause)
	escrow.Post("/unpause", middleware.RequirePermission(rbac.PermPauseEscrow), h.Escrow.Unpause)

	// Admin
	protected.Post("/admin/indexer/run", middleware.RequirePermission(rbac.PermRunIndexer), escrowAction, h.Indexer.Run)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WSHub.HandleWS))
}
