package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/api/handlers"
	"github.com/linesmerrill/traffic-portal-api/config"
)

const shutdownGrace = 15 * time.Second

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// initialize database and router
	if err := a.Initialize(ctx); err != nil {
		zap.S().Fatalw("failed to initialize traffic-portal-api", "error", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.S().Infow("traffic-portal-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Errorw("server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	zap.S().Info("shutting down traffic-portal-api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("failed to drain http server", "error", err)
	}
	if err := a.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("failed to release resources", "error", err)
	}
	_ = zap.L().Sync()
}
