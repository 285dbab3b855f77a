package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gethsun1/project-mocha-demo/config"
	"github.com/gethsun1/project-mocha-demo/internal/adapters/farmapi"
	"github.com/gethsun1/project-mocha-demo/internal/adapters/onchain"
)

// runServe hosts the no-cache snapshot endpoint in front of the ledger.
func runServe(ctx context.Context, cfg *config.Config, client *onchain.Client) {
	srv := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           farmapi.NewHandler(client),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "err", err)
		}
	}()

	slog.Info("snapshot endpoint listening", "addr", cfg.API.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
	slog.Info("mocha stopped cleanly")
}
