package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tally/internal/alerts"
	"tally/internal/budget"
	"tally/internal/config"
	"tally/internal/database"
	"tally/internal/feed"
	"tally/internal/handlers"
	"tally/internal/ledger"
	"tally/internal/logger"
	"tally/internal/middleware"
	"tally/internal/rates"
	"tally/internal/scheduler"
	"tally/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize stores and adapters
	db := dbManager.DB()
	httpClient := &http.Client{Timeout: appConfig.FeedTimeout}
	ledgerStore := ledger.NewStore(db)
	alertStore := alerts.NewStore(db, log)
	capStore := budget.NewCapStore(db)
	feedAdapter := feed.NewAdapter(httpClient, appConfig.FeedURL, appConfig.FeedAPIKey)
	rateSource := rates.NewSource(httpClient, appConfig.RatesURL, appConfig.BaseCurrency, log)

	// Initialize the sync scheduler
	sched := scheduler.New(feedAdapter, ledgerStore, rateSource, capStore, alertStore, scheduler.Config{
		BaseCurrency: appConfig.BaseCurrency,
		Interval:     appConfig.SyncInterval,
		Debounce:     appConfig.SyncDebounce,
		PollTimeout:  appConfig.FeedTimeout,
	}, log)
	sched.Start()
	defer sched.Stop()

	// Initialize handlers
	transactionHandler := handlers.NewTransactionHandler(sched, ledgerStore)
	alertHandler := handlers.NewAlertHandler(alertStore)
	capHandler := handlers.NewCapHandler(capStore)
	syncHandler := handlers.NewSyncHandler(sched)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group: all routes require a caller identity
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Identity())

	// Merged transaction snapshot
	v1.GET("/transactions", transactionHandler.GetTransactions)

	// Ledger routes
	entries := v1.Group("/ledger")
	entries.POST("", transactionHandler.CreateLedgerEntry)
	entries.GET("", transactionHandler.GetLedgerEntries)
	entries.PUT("/:id", transactionHandler.UpdateLedgerEntry)
	entries.DELETE("/:id", transactionHandler.DeleteLedgerEntry)

	// Alert routes
	alertRoutes := v1.Group("/alerts")
	alertRoutes.GET("", alertHandler.GetAlerts)
	alertRoutes.PUT("/:id/read", alertHandler.MarkAlertRead)
	alertRoutes.DELETE("/read", alertHandler.DeleteReadAlerts)
	alertRoutes.DELETE("/:id", alertHandler.DeleteAlert)
	alertRoutes.DELETE("", alertHandler.DeleteAllAlerts)

	// Spending cap routes
	caps := v1.Group("/caps")
	caps.GET("", capHandler.GetCaps)
	caps.PUT("", capHandler.SetCap)
	caps.DELETE("/:category", capHandler.DeleteCap)

	// Sync routes, guarded by the sync API key
	sync := v1.Group("/sync")
	sync.Use(middleware.SyncAuthMiddleware(appConfig.SyncAPIKey))
	sync.POST("/refresh", syncHandler.TriggerRefresh)
	sync.GET("/status", syncHandler.GetStatus)

	srv := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting tally server on port %s", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infof("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
