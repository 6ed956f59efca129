package routes

import (
	"log/slog"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/arman-d/MentorAppBack/internal/config"
	"github.com/arman-d/MentorAppBack/internal/events"
	"github.com/arman-d/MentorAppBack/internal/handlers"
	"github.com/arman-d/MentorAppBack/internal/middleware"
	"github.com/arman-d/MentorAppBack/internal/repository"
	"github.com/arman-d/MentorAppBack/internal/services"
)

// RegisterRoutes wires repositories, services, and handlers onto the app and
// returns the settlement service so the payout worker can share it.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) *services.SettlementService {
	userRepo := repository.NewUserRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	rescheduleRepo := repository.NewRescheduleRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	disputeRepo := repository.NewDisputeRepository(db)

	hub := events.NewHub()
	go hub.Run()

	var gateway services.PaymentGateway
	if cfg.GatewayBaseURL != "" {
		gateway = services.NewHTTPPaymentGateway(cfg.GatewayBaseURL, cfg.GatewayAPIKey)
	} else {
		gateway = services.NewOfflinePaymentGateway()
	}

	minPayout, err := decimal.NewFromString(cfg.MinPayoutAmount)
	if err != nil {
		minPayout = decimal.NewFromInt(250)
	}
	payoutHold := time.Duration(cfg.PayoutHoldHours) * time.Hour

	slotService := services.NewSlotService(slotRepo, userRepo)
	sessionService := services.NewSessionService(db, sessionRepo, paymentRepo, userRepo, gateway, hub, payoutHold)
	rescheduleService := services.NewRescheduleService(db, sessionRepo, rescheduleRepo, hub)
	settlementService := services.NewSettlementService(db, scheduleRepo, userRepo, payoutRepo, disputeRepo, hub, minPayout, slog.Default())
	disputeService := services.NewDisputeService(db, disputeRepo, sessionRepo, paymentRepo, scheduleRepo)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	slotHandler := handlers.NewSlotHandler(slotService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	rescheduleHandler := handlers.NewRescheduleHandler(rescheduleService)
	payoutHandler := handlers.NewPayoutHandler(settlementService)
	disputeHandler := handlers.NewDisputeHandler(disputeService)
	eventsHandler := handlers.NewEventsHandler(hub, cfg.JWTSecret)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	slots := authProtected.Group("/slots")
	slots.Post("", slotHandler.CreateSlot)
	slots.Get("", slotHandler.ListOpenSlots)
	slots.Delete("/:id", slotHandler.DeleteSlot)

	sessions := authProtected.Group("/sessions")
	sessions.Post("/book", sessionHandler.BookSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Post("/:id/confirm", sessionHandler.ConfirmPayment)
	sessions.Post("/:id/join", sessionHandler.Join)
	sessions.Post("/:id/complete", sessionHandler.Complete)
	sessions.Post("/:id/cancel", sessionHandler.Cancel)
	sessions.Post("/:id/no-show", sessionHandler.MarkNoShow)
	sessions.Post("/:id/reschedule", rescheduleHandler.Propose)
	sessions.Post("/:id/disputes", disputeHandler.Open)

	reschedules := authProtected.Group("/reschedules")
	reschedules.Get("/:id", rescheduleHandler.GetRequest)
	reschedules.Post("/:id/approve", rescheduleHandler.Approve)
	reschedules.Post("/:id/reject", rescheduleHandler.Reject)

	payouts := authProtected.Group("/payouts")
	payouts.Get("/balance", payoutHandler.Balance)
	payouts.Post("/withdrawals", payoutHandler.RequestWithdrawal)
	payouts.Get("/withdrawals", payoutHandler.ListWithdrawals)
	payouts.Put("/withdrawals/:id/status", payoutHandler.UpdateWithdrawalStatus)

	disputes := authProtected.Group("/disputes")
	disputes.Get("/:id", disputeHandler.Get)
	disputes.Post("/:id/resolve", disputeHandler.Resolve)

	api.Use("/v1/ws", eventsHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(eventsHandler.HandleWebSocket))

	return settlementService
}
