package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cawebapp/ca-backend/internal/api"
	"github.com/cawebapp/ca-backend/internal/api/handlers"
	"github.com/cawebapp/ca-backend/internal/archive"
	"github.com/cawebapp/ca-backend/internal/config"
	"github.com/cawebapp/ca-backend/internal/gemini"
	"github.com/cawebapp/ca-backend/internal/logger"
	"github.com/cawebapp/ca-backend/internal/pdftext"
	"github.com/cawebapp/ca-backend/internal/store"
	"github.com/cawebapp/ca-backend/internal/summary"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables first
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("FATAL: Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("FATAL: failed to build logger: %v", err)
	}
	defer appLog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the document store
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		appLog.Fatal("Failed to open store", "backend", cfg.Store.Backend, "error", err)
	}
	defer st.Close()
	appLog.Info("store ready", "backend", cfg.Store.Backend)

	// Initialize Gemini client
	geminiClient, err := gemini.NewClient(ctx, cfg.Model)
	if err != nil {
		appLog.Fatal("Failed to initialize Gemini client", "error", err)
	}
	defer geminiClient.Close()

	var archiver archive.Archiver
	archiveClient, err := archive.NewClient(ctx, cfg.Archive)
	switch {
	case err != nil:
		appLog.Fatal("Failed to initialize R2 client", "error", err)
	case archiveClient == nil:
		appLog.Warn("R2 archive not configured, uploads will not be archived")
	default:
		archiver = archiveClient
		appLog.Info("R2 archive enabled", "bucket", cfg.Archive.Bucket)
	}

	pipeline := summary.NewService(pdftext.Extractor{}, geminiClient, st, archiver, appLog.With("component", "summary"))
	handler := handlers.NewHandler(pipeline, st, appLog.With("component", "http"), cfg.MaxUploadBytes)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	api.SetupRoutes(router, handler, appLog, cfg.AllowedOrigins)

	// Create HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		appLog.Info("Server listening", "port", cfg.Port, "env", cfg.Env, "model", cfg.Model.Name)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", "error", err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give server 5 seconds to shut down gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", "error", err)
		return
	}

	appLog.Info("Server exited properly")
}
