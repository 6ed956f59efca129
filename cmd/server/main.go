package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/arman-d/MentorAppBack/internal/config"
	"github.com/arman-d/MentorAppBack/internal/database"
	"github.com/arman-d/MentorAppBack/internal/jobs"
	"github.com/arman-d/MentorAppBack/internal/metrics"
	"github.com/arman-d/MentorAppBack/internal/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	metrics.Register()

	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	db, err := database.Connect(context.Background(), cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	app := fiber.New()

	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	settlementService := routes.RegisterRoutes(app, cfg, db)

	releaseJob := jobs.NewPayoutReleaseJob(settlementService, cfg.ReleasePollCron, slog.Default())
	if err := releaseJob.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start payout release job: %v", err)
	}
	defer releaseJob.Stop()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
