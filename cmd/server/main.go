package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holophrame-api/internal/database"
	"holophrame-api/internal/logger"
	"holophrame-api/internal/realtime"
	"holophrame-api/internal/routes"
)

func main() {
	log := logger.New()
	defer log.Sync()

	// Init database
	database.InitDB()
	log.Info("database connected and migrated")

	// Realtime layer: one hub shared by the dispatcher, the liveness
	// monitor, and the websocket handler.
	hub := realtime.NewHub()
	events := realtime.NewDispatcher(hub, log)
	monitor := realtime.NewMonitor(hub, realtime.DefaultLivenessInterval, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go monitor.Run(ctx)

	ginRoutes := routes.SetupRoutes(hub, events, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8008"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: ginRoutes,
	}

	go func() {
		log.Infof("Holophrame server running on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// Graceful shutdown: stop accepting requests, drain for up to 10s.
	<-ctx.Done()
	log.Info("shutdown signal received, closing server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("forced shutdown after timeout", "error", err)
	}
	log.Info("server closed")
}
