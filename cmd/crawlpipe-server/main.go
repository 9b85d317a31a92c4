// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/northbound/crawlpipe/internal/app"
	"github.com/northbound/crawlpipe/internal/config"
	"github.com/northbound/crawlpipe/internal/logger"
	"github.com/northbound/crawlpipe/internal/server"
	"github.com/northbound/crawlpipe/internal/worker"
)

var (
	httpPort    = flag.Int("http-port", 8081, "HTTP server port")
	workerCount = flag.Int("worker-count", 5, "Number of background crawl workers")
)

func main() {
	logFile := "crawlpipe-server.log"
	if _, err := logger.Init(logFile); err != nil {
		fmt.Printf("failed to initialize logger: %v, using stdout only\n", err)
	} else {
		logger.Printf("logger initialized, writing to %s", logFile)
	}

	if err := godotenv.Load(); err != nil {
		logger.Printf("no .env file found, using environment variables: %v", err)
	} else {
		logger.Printf("loaded .env file")
	}

	flag.Parse()

	cfg := config.Load()

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to build application: %v", err)
	}
	defer application.Close()

	var workerCancel context.CancelFunc
	if application.Queue != nil {
		workerCtx, cancel := context.WithCancel(ctx)
		workerCancel = cancel

		go func() {
			logger.Printf("starting %d crawl queue workers", *workerCount)
			if err := worker.StartWorkers(workerCtx, application.Queue, application.HandleQueuedJob, *workerCount); err != nil {
				logger.Errorf("worker error: %v", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *httpPort),
		Handler: server.Routes(application),
	}

	go func() {
		logger.Printf("HTTP server listening on %d", *httpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	waitForShutdown(httpServer, workerCancel)
}

func waitForShutdown(httpServer *http.Server, workerCancel context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Println("shutting down server...")

	if workerCancel != nil {
		workerCancel()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}

	if err := logger.GetDefault().Close(); err != nil {
		fmt.Printf("failed to close logger: %v\n", err)
	}
}
