package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/config"
	"github.com/dukerupert/smartshop/internal/database"
	"github.com/dukerupert/smartshop/internal/handler"
	"github.com/dukerupert/smartshop/internal/logging"
	"github.com/dukerupert/smartshop/internal/server"
	"github.com/dukerupert/smartshop/internal/session"
	"github.com/dukerupert/smartshop/internal/store"
	"github.com/dukerupert/smartshop/web"
)

// sessionIdle is how long a signed-in browser's in-memory state is kept
// without requests. The persisted session outlives it.
const sessionIdle = 2 * time.Hour

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.IsDev())

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	salt, err := store.NewSettingsStore(db).SealSalt()
	if err != nil {
		logger.Error("load seal salt", "error", err)
		os.Exit(1)
	}
	sealer, err := store.NewSealer(cfg.Secret, salt)
	if err != nil {
		logger.Error("create sealer", "error", err)
		os.Exit(1)
	}
	sessions := store.NewSessionStore(db, sealer)

	client, err := api.New(cfg.APIURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(logger.With("component", "api")),
	)
	if err != nil {
		logger.Error("create api client", "error", err)
		os.Exit(1)
	}

	render, err := handler.NewRenderer(web.FS, cfg.AssetURL, logger)
	if err != nil {
		logger.Error("parse templates", "error", err)
		os.Exit(1)
	}

	reg := session.NewRegistry(session.NewManager(sessions, client, cfg.SessionTTL, logger))
	srv := server.New(reg, render, server.Options{
		Debounce:      cfg.Debounce,
		AssetOrigin:   cfg.AssetURL,
		SecureCookies: !cfg.IsDev(),
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.APITimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := sessions.DeleteExpired(); err != nil {
					logger.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired sessions", "count", n)
				}
				srv.Registry().Sweep(sessionIdle)
				srv.RateLimiter().Cleanup(time.Hour)
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("smartshop starting", "addr", httpServer.Addr, "env", cfg.Env, "api", cfg.APIURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
