// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/herdgame/herd/internal/auth"
	"github.com/herdgame/herd/internal/cache"
	"github.com/herdgame/herd/internal/database"
	"github.com/herdgame/herd/internal/handlers"
	"github.com/herdgame/herd/internal/historian"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	// Persistent signing keys keep player tokens valid across restarts;
	// without them a fresh per-process key pair is generated.
	priv, pub := os.Getenv("AUTH_PRIVATE_KEY_PATH"), os.Getenv("AUTH_PUBLIC_KEY_PATH")
	if priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			logger.Fatalf("failed to load signing keys: %v", err)
		}
	} else {
		auth.Init()
	}

	if os.Getenv("PG_HOST") != "" {
		if err := database.ConnectDB(); err != nil {
			logger.Warnf("postgres unavailable, running memory-only: %v", err)
		} else {
			defer database.Close()
		}
	} else {
		logger.Info("PG_HOST not set, running memory-only")
	}

	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, event publishing disabled: %v", err)
	}

	srv := handlers.NewServer(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retention := database.DefaultRetention
	if raw := os.Getenv("ROOM_RETENTION"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			retention = d
		} else {
			logger.Warnf("invalid ROOM_RETENTION %q, using default %s", raw, retention)
		}
	}
	go database.StartRetentionSweep(ctx, time.Hour, retention, srv.Rooms.DeleteExpired)
	go historian.New(cache.Rdb, database.DB).Run(ctx)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Fatalf("server exited: %v", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown did not finish cleanly: %v", err)
		}
	}
}
