package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/locvowork/sheet_aggregator/internal/bootstrap"
	"github.com/locvowork/sheet_aggregator/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		logger.ErrorLog(ctx, err, "Failed to initialize application")
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.ErrorLog(ctx, err, "Server stopped")
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logger.InfoLog(context.Background(), "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLog(shutdownCtx, err, "Graceful shutdown failed")
		os.Exit(1)
	}
}
