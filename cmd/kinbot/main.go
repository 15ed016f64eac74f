package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kinbot/kinbot/internal/api"
	"github.com/kinbot/kinbot/internal/config"
	"github.com/kinbot/kinbot/internal/handlers"
	"github.com/kinbot/kinbot/internal/repository/postgres"
	"github.com/kinbot/kinbot/internal/service"
	"github.com/kinbot/kinbot/internal/telegram"
	"github.com/kinbot/kinbot/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting KinBot...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	chatRepo := postgres.NewChatRepository(db.DB)
	userRepo := postgres.NewUserRepository(db.DB)
	marriageRepo := postgres.NewMarriageRepository(db.DB)
	graphRepo := postgres.NewFamilyGraphRepository(db.DB)

	// Service layer
	svc := service.New(db.DB, l, chatRepo, userRepo, marriageRepo, graphRepo)

	// Telegram bot
	bot, err := telegram.NewBot(cfg.TelegramToken, l)
	if err != nil {
		l.Fatalf("Failed to create Telegram bot: %v", err)
	}

	router := bot.Router()
	router.RegisterCommand("start", handlers.NewStartHandler(l))
	router.RegisterCommand("help", handlers.NewHelpHandler(l))

	// Marriage handlers
	router.RegisterCommand("marry", handlers.NewMarryHandler(svc, l))
	router.RegisterCommand("divorce", handlers.NewDivorceHandler(svc, l))
	router.RegisterCommand("marriage", handlers.NewMyMarriageHandler(svc, l))
	router.RegisterCommand("marriages", handlers.NewMarriagesHandler(svc, l))

	// Family handlers
	router.RegisterCommand("adopt", handlers.NewAdoptHandler(svc, l))
	router.RegisterCommand("abandon", handlers.NewAbandonHandler(svc, l))
	router.RegisterCommand("leavefamily", handlers.NewLeaveFamilyHandler(svc, l))
	router.RegisterCommand("family", handlers.NewFamilyTreeHandler(svc, l))

	// Inline keyboard callbacks
	router.RegisterCallback("marry", handlers.NewMarriageCallback(svc, l))
	router.RegisterCallback("adopt", handlers.NewAdoptionCallback(svc, l))
	router.RegisterCallback("marriages", handlers.NewMarriagesPageCallback(svc, l))

	// Membership events keep the user directory and family graph consistent.
	membership := handlers.NewMembershipHandler(svc, l)
	router.SetMembershipHandler(membership)
	router.SetObserver(membership)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// HTTP server: health, metrics, read-only API.
	apiServer := api.NewServer(svc, l, bot.Ready)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	// Start Telegram bot polling
	go func() {
		if err := bot.Start(ctx); err != nil {
			l.Errorf("Bot error: %v", err)
		}
	}()

	l.Info("KinBot started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("KinBot stopped")
}
