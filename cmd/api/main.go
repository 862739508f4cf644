package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/UnExplainableFish52/reliant-learners-academy/configs"
	"github.com/UnExplainableFish52/reliant-learners-academy/database"
	"github.com/UnExplainableFish52/reliant-learners-academy/handlers"
	"github.com/UnExplainableFish52/reliant-learners-academy/jobs"
	"github.com/UnExplainableFish52/reliant-learners-academy/notifications"
	"github.com/UnExplainableFish52/reliant-learners-academy/routes"
	"github.com/UnExplainableFish52/reliant-learners-academy/services"
	"github.com/UnExplainableFish52/reliant-learners-academy/session"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/UnExplainableFish52/reliant-learners-academy/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogger(cfg config.Settings) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("🔥 Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("🔥 Failed to migrate database")
	}
	if err := database.SeedAdmin(db, cfg); err != nil {
		log.Error().Err(err).Msg("🔥 Failed to seed admin user")
	}

	st := store.New(db)
	if err := database.SeedTests(context.Background(), st, cfg.SeedTestsFile); err != nil {
		log.Error().Err(err).Msg("🔥 Failed to seed mock tests")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	c := session.NewCron()
	mgr := session.NewManager(st, session.NewCronScheduler(c), hub,
		session.WithIntervals(cfg.TickInterval, cfg.AutosaveInterval),
		session.WithCompletionHook(notifications.ReceiptHook(db, notifications.NewBrevoService(cfg))),
	)
	if err := jobs.Register(c, cfg.StaleAttemptCron, st, mgr); err != nil {
		log.Fatal().Err(err).Msg("🔥 Invalid STALE_ATTEMPT_CRON")
	}
	c.Start()

	h := handlers.New(db, st, mgr, hub, services.NewResultSheets(cfg.CloudinaryURL), cfg)

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Reliant Learners Academy",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  45 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: time.DateTime,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Reliant Learners Academy API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	routes.AuthRoutes(app, h)
	routes.AdminRoutes(app, h)
	routes.ExamRoutes(app, h)
	routes.SocketRoutes(app, h)

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("✅ Server is running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("🔥 Server failed to start")
	}

	// in-progress records stay resumable; stop timers before the store goes away
	mgr.Close()
	<-c.Stop().Done()
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("✅ Shutdown complete")
}
