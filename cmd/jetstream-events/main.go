package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jetstream-go/common/logger"
	"jetstream-go/internal/config"
	"jetstream-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "jetstream-events")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. service
	svc, err := service.NewEventService(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create event service", zap.Error(err))
	}
	defer svc.Stop()

	// 4. run until a signal arrives; Start returns once the in-flight window is done
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		if err := <-done; err != nil {
			log.Error("Event service stopped with error", zap.Error(err))
		}
	case err := <-done:
		if err != nil {
			log.Error("Event service error", zap.Error(err))
		}
	}

	log.Info("Event service stopped")
}
