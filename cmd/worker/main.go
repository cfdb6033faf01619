// Command worker runs the background processing layer without the HTTP
// surface: queue consumers, schedulers and the monitoring loop. Useful when
// the API and the workers scale independently.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"learnlytics-backend/infrastructure/config"
	"learnlytics-backend/infrastructure/di"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	container.WorkerPool.Start(ctx)
	if err := container.Scheduler.Start(ctx); err != nil {
		container.Logger.Fatal("Failed to start schedulers", zap.Error(err))
	}

	container.Logger.Info("Worker started",
		zap.String("environment", cfg.Environment),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down worker...")
	container.Scheduler.Stop()
	container.WorkerPool.Stop()

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Worker stopped")
}
