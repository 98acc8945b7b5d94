// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/agentmarket-backend/internal/config"
	"github.com/javajoker/agentmarket-backend/internal/database"
	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/router"
	"github.com/javajoker/agentmarket-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	configureLogging(cfg.Logging)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	// Initialize the ledger contract
	chain := ledger.New(ledger.Params{
		FeeRateBps:      cfg.Ledger.FeeRateBps,
		ListingFee:      cfg.Ledger.ListingFee,
		MinPrice:        cfg.Ledger.MinPrice,
		MaxPrice:        cfg.Ledger.MaxPrice,
		FinalityDelay:   time.Duration(cfg.Ledger.FinalityDelayMs) * time.Millisecond,
		PlatformAccount: ledger.Address(cfg.Ledger.PlatformAccount),
	})

	// Start the chain event follower
	followerCtx, stopFollower := context.WithCancel(context.Background())
	defer stopFollower()

	projections := services.NewProjectionService(db)
	follower := services.NewFollowerService(db, chain, projections, cfg.Follower)
	go func() {
		if err := follower.Run(followerCtx); err != nil && err != context.Canceled {
			logrus.WithError(err).Error("Chain event follower exited")
		}
	}()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(db, chain, follower, cfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	// In-flight receipt projections have drained with the HTTP server; now
	// stop the follower between sync ticks
	stopFollower()

	logrus.Info("Server exited")
}

func configureLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
