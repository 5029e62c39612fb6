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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/devtrack/eventledger/internal/config"
	store "github.com/devtrack/eventledger/internal/repository"
	"github.com/devtrack/eventledger/internal/service"
	handler "github.com/devtrack/eventledger/internal/transport/http"
	"github.com/devtrack/eventledger/policy"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting eventledger...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Load retention policy
	retention, err := config.LoadRetentionPolicy(cfg.RetentionPolicyPath)
	if err != nil {
		log.Fatalf("Failed to load retention policy: %v", err)
	}

	// Initialize replay policy engine
	ctx := context.Background()
	policySource, err := config.LoadReplayPolicy(cfg.ReplayPolicyPath, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to load replay policy: %v", err)
	}
	policyEngine, err := policy.NewEngine(ctx, policySource)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, service.NewStateApplier(), policyEngine, retention)

	// Initialize handlers
	h := handler.NewHandler(svc)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(server)

	// Periodic retention cleanup
	stopCleanup := make(chan struct{})
	if cfg.RetentionIntervalHours > 0 {
		interval := time.Duration(cfg.RetentionIntervalHours) * time.Hour
		log.Printf("Retention cleanup every %s", interval)
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					removed, err := svc.RunRetentionCleanup(context.Background())
					if err != nil {
						log.Printf("ERROR: retention cleanup failed: %v", err)
						continue
					}
					log.Printf("Retention cleanup removed %d events", removed)
				case <-stopCleanup:
					return
				}
			}
		}()
	}

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down eventledger...")
	close(stopCleanup)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
	}

	log.Println("Shutdown complete")
}
