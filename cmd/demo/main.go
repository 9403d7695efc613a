// Command demo runs the instrumented sample service. It exists to exercise
// covmark's marks outside a test binary: run it, send traffic, and scrape
// /metrics to watch hit counters move (COVMARK_METRICS=1).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/covmark/covmark"
	"github.com/covmark/covmark/internal/demosvc"
	"github.com/covmark/covmark/internal/telemetry"
)

func main() {
	logger, err := telemetry.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	covmark.SetLogger(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	limiter := rate.NewLimiter(rate.Limit(50), 100)
	handler := demosvc.NewHandler(demosvc.NewCache(), logger)
	router := demosvc.NewRouter(handler, logger, limiter)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
