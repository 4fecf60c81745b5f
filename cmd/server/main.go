package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dm-core/auth"
	"dm-core/infrastructure/ws"
	"dm-core/internal"
	"dm-core/internal/metrics"
	"dm-core/repositories"
	"dm-core/runtime"
	"dm-core/runtime/workers"
	"dm-core/services"
	"dm-core/sink"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting, so that every defer executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.LoggerFromLevel(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Supervision & Orchestration
	metrics.Register()
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	presence := runtime.NewPresence()
	directory := runtime.NewDirectory()
	messageRepository := repositories.NewMessageRepository(db, log)

	orchestrator := runtime.NewOrchestrator(
		log, sup, registry, presence, directory,
		config.BufferSize, config.SinkTimeout, config.TelemetryInterval,
		charReplacement,
	)
	orchestrator.Warm(messageRepository)
	orchestrator.Add(
		sink.NewDiskSink(messageRepository, log),
		sink.NewMetricsSink(),
	)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the Engine
	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}

	// 6. Websocket Server Setup
	var verifier *auth.Verifier
	if config.AuthSecret != "" {
		verifier = auth.NewVerifier(config.AuthSecret)
	}
	service := services.NewDMService(orchestrator)
	handler := ws.NewHandler(log, service, verifier,
		config.AllowPlainIdentity, config.ConnectionBufferSize)

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	internal.StartDebugServer(log, db, config.DebugPort)

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
