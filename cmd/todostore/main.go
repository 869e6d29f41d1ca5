package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rossigee/todostore/internal/api"
	"github.com/rossigee/todostore/internal/auth"
	"github.com/rossigee/todostore/internal/backup"
	"github.com/rossigee/todostore/internal/config"
	"github.com/rossigee/todostore/internal/metrics"
	"github.com/rossigee/todostore/internal/minio"
	"github.com/rossigee/todostore/internal/notify"
	"github.com/rossigee/todostore/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	toaster, err := notify.New(cfg.ToastDurationMS, cfg.ToastPlacement)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure notifications")
	}

	collector := metrics.NewCollector()
	store := storage.New(cfg.DBPath, storage.WithRecorder(collector))

	// Open early so the first request does not pay for it; operations
	// would open it lazily anyway.
	if err := store.Initialize(context.Background()); err != nil {
		logrus.WithError(err).Warn("Database not opened at startup, will retry on first request")
	}

	var exporter api.Exporter
	if cfg.Backup.Enabled() {
		client, err := minio.NewClient(cfg.Backup)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize backup client")
		}
		exporter = backup.NewExporter(store, client, cfg.Backup.Prefix, collector)
	}

	authValidator, err := auth.NewValidator(cfg.APITokensFile, cfg.AuthDisabled)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth validator")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.RequestLogger())
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.NewHandler(store, toaster, exporter), authValidator.Middleware())
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"db_path": cfg.DBPath,
			"backup":  cfg.Backup.Enabled(),
		}).Info("Starting todostore server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
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
		logrus.WithError(err).Error("Server forced to shutdown")
	}
	if err := store.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close database")
	}

	logrus.Info("Server exited")
}
