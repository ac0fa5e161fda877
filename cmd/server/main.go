package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"hashstake/dashboard/internal/api"
	"hashstake/dashboard/internal/blockchain/evm"
	"hashstake/dashboard/internal/cache"
	"hashstake/dashboard/internal/config"
	"hashstake/dashboard/internal/database"
	"hashstake/dashboard/internal/metrics"
	"hashstake/dashboard/internal/service"
	"hashstake/dashboard/internal/staking"
	"hashstake/dashboard/internal/worker"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting staking dashboard service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.String("chain_id", cfg.Chain.ChainID),
		zap.String("token", cfg.Chain.TokenAddress),
		zap.String("staking", cfg.Chain.StakingAddress))

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Warn("Failed to run migrations (may already be applied)", zap.Error(err))
	} else {
		logger.Info("Database migrations applied successfully")
	}

	// Test database connection with a simple query
	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	logger.Info("Database health check passed")

	m := metrics.New()

	// Read cache
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 5*time.Second)
	store, err := cache.New(cacheCtx, cfg.Cache)
	cacheCancel()
	if err != nil {
		logger.Fatal("Failed to open cache", zap.Error(err))
	}
	defer store.Close()

	// Chain
	client, err := evm.NewClient(&cfg.Chain, &cfg.Wallet, cfg.Worker.ConfirmTimeout, logger)
	if err != nil {
		logger.Fatal("Failed to initialize EVM client", zap.Error(err))
	}
	defer client.Close()

	token, err := evm.NewToken(common.HexToAddress(cfg.Chain.TokenAddress), client.Caller())
	if err != nil {
		logger.Fatal("Failed to bind token contract", zap.Error(err))
	}
	stakingContract, err := evm.NewStaking(common.HexToAddress(cfg.Chain.StakingAddress), client.Caller())
	if err != nil {
		logger.Fatal("Failed to bind staking contract", zap.Error(err))
	}

	// Initialize services
	audit := service.NewAuditService(db, logger)
	submitter := service.NewRecordingSubmitter(client, audit, m, logger)
	rates := cache.NewCachedStaking(stakingContract, store, cfg.Cache.RateTTL, m, logger)
	panel := staking.NewPanel(token, rates, submitter, cfg.Chain.TokenSymbol, logger)
	wallet := evm.NewWallet(client, &cfg.Wallet)
	snapshots := cache.NewSnapshots(store, cfg.Cache.SnapshotTTL)
	hub := api.NewHub(cfg.Server.AllowedOrigins, m, logger)

	if acct := wallet.Account(); acct != nil {
		logger.Info("Wallet connected",
			zap.String("address", acct.Address.Hex()),
			zap.Bool("can_sign", acct.CanSign))
	} else {
		logger.Warn("No wallet configured, dashboard runs disconnected")
	}

	logger.Info("Services initialized")

	// Initialize workers
	workerManager := worker.NewWorkerManager(&cfg.Worker, worker.Dependencies{
		Panel:     panel,
		Wallet:    wallet,
		Snapshots: snapshots,
		PoolStore: db,
		Hub:       hub,
		Metrics:   m,
	}, logger)

	// Initialize API handlers
	apiHandler := api.NewHandler(workerManager, audit, snapshots, db, logger)
	router := api.SetupRouter(apiHandler, hub, m, cfg.Server.AllowedOrigins, logger)

	// Create HTTP server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", serverAddr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	// Start workers
	workerManager.Start()
	logger.Info("Workers started")

	logger.Info("Service initialized successfully",
		zap.String("status", "ready"),
		zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		logger.Fatal("HTTP server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	logger.Info("Shutting down service...")

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown workers first; running actions finish before the hub goes away
	if err := workerManager.Shutdown(cfg.Worker.ConfirmTimeout); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}
	hub.Close()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		httpServer.Close()
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	logger.Info("Service stopped successfully")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
