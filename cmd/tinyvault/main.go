package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tinyvault/internal/admin"
	"tinyvault/internal/bot"
	"tinyvault/internal/config"
	"tinyvault/internal/crash"
	"tinyvault/internal/handler"
	"tinyvault/internal/logger"
	"tinyvault/internal/service"
	"tinyvault/internal/shortcode"
	"tinyvault/internal/storage"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")

	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Initialize database
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := storage.GetDB()

	// Initialize repositories and ensure schema
	userRepo := storage.NewUserRepository(db)
	itemRepo := storage.NewItemRepository(db)
	updateRepo := storage.NewUpdateRepository(db)
	for _, migrate := range []func() error{userRepo.MigrateTable, itemRepo.MigrateTable, updateRepo.MigrateTable} {
		if err := migrate(); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
	}
	log.Println("Database connection established, schema up to date")

	// Build the core services
	gen, err := shortcode.NewGenerator(cfg.Vault.CodeAlphabet, cfg.Vault.CodeLength)
	if err != nil {
		log.Fatalf("Invalid short code configuration: %v", err)
	}
	itemService := service.NewItemService(itemRepo, gen, cfg.Vault)
	userService := service.NewUserService(userRepo)
	processor := service.NewProcessor(db, itemService, userService, updateRepo, cfg.Vault)

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize bot with configuration
	botService, webhookServer, err := bot.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	// Start webhook and admin servers
	crash.SafeGoroutine("webhook-server", func() {
		if err := webhookServer.Start(); err != nil {
			log.Fatalf("Webhook server error: %v", err)
		}
	})

	adminServer := admin.NewServer(cfg, userService, itemService, db)
	crash.SafeGoroutine("admin-server", func() {
		if err := adminServer.Start(); err != nil {
			log.Fatalf("Admin server error: %v", err)
		}
	})

	// Give servers time to start
	time.Sleep(500 * time.Millisecond)
	log.Println("HTTP servers are ready, starting bot handler...")

	// Setup and start message handlers
	handler.SetupMessageHandlers(botService.Handler, botService.Bot, processor)
	handler.StartStatusMonitoring()
	botService.Start()

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down...", sig)

	// Gracefully shutdown servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	botService.Stop()
	if err := webhookServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Webhook server shutdown error: %v", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Admin server shutdown error: %v", err)
	}

	log.Println("Server gracefully stopped")
}
