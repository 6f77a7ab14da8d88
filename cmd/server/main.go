package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/remote-shell-broker/backend/api/handlers"
	"github.com/remote-shell-broker/backend/internal/broker"
	"github.com/remote-shell-broker/backend/internal/config"
	"github.com/remote-shell-broker/backend/internal/db"
	"github.com/remote-shell-broker/backend/internal/registry"
	"github.com/remote-shell-broker/backend/internal/repository"
	"github.com/remote-shell-broker/backend/internal/shell"
	"github.com/remote-shell-broker/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
		log.Fatal("failed to create data directory", zap.Error(err))
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	auditRepo := repository.NewAuditRepository(database)

	// Sessions never survive a restart; stamp any leftovers from the
	// previous process as interrupted.
	if n, err := auditRepo.MarkInterrupted(context.Background()); err != nil {
		log.Warn("failed to mark interrupted sessions", zap.Error(err))
	} else if n > 0 {
		log.Info("marked stale sessions as interrupted", zap.Int64("count", n))
	}

	reg := registry.New()
	launcher := shell.NewLauncher(log)
	sessionBroker := broker.New(reg, launcher, log, broker.Options{
		ReplayBufferSize: cfg.Session.ReplayBufferSize,
		Recorder:         auditRepo,
	})

	wsHandler := ws.NewHandler(sessionBroker, log)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": reg.Len()})
	})

	api := r.Group("/api")
	{
		handlers.NewFilesystemHandler().RegisterRoutes(api)
		handlers.NewExecHandler().RegisterRoutes(api)
		handlers.NewSessionsHandler(auditRepo).RegisterRoutes(api)
		handlers.NewWebSocketHandler(wsHandler).RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	sessionBroker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("forced shutdown", zap.Error(err))
	}
}

// newLogger builds the zap logger per configuration.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// corsMiddleware allows cross-origin access for development setups where
// the presentation layer is served from another port.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
