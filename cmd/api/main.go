package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"triage-backend/cmd"
	"triage-backend/internal/api"
	"triage-backend/internal/audit"
	"triage-backend/internal/config"
	"triage-backend/internal/core"
	"triage-backend/internal/database"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

func createServer(cfg config.Config, db *gorm.DB, gateway *core.Gateway, recorder audit.Recorder) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300, // Cache preflight response for 5 minutes
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		api.NewTriageService(db, gateway, recorder).AddRoutes(r)
		api.NewHospitalService(db).AddRoutes(r)
	})

	api.AddStaticRoutes(r, cfg.StaticDir)

	return &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), os.ModePerm); err != nil {
			log.Fatalf("error creating directory for log file: %v", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()

		log.SetOutput(io.MultiWriter(f, os.Stderr))
	}

	slog.Info("starting triage backend", "addr", cfg.Addr(), "model_dir", cfg.ModelDir, "model_type", cfg.ModelType, "static_dir", cfg.StaticDir)

	gateway, release := cmd.LoadGateway(context.Background(), cfg)
	defer release()

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	publisher, reciever, err := cmd.CreateAuditQueue(cfg)
	if err != nil {
		log.Fatalf("Failed to create audit queue: %v", err)
	}
	defer publisher.Close()

	writer := audit.NewWriter(db, reciever, cfg.AuditWorkers)
	writer.Start()

	server := createServer(cfg, db, gateway, audit.NewQueueRecorder(publisher))

	done := make(chan struct{})
	go func() {
		defer close(done)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		slog.Info("shutting down audit writer")
		writer.Stop()
	}()

	slog.Info("server started", "addr", cfg.Addr())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.Addr(), err)
	}

	<-done
	slog.Info("server stopped")
}
