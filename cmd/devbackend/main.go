package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/config"
	"github.com/spec-kit/homeservices-portal/internal/devbackend"
	"github.com/spec-kit/homeservices-portal/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	srv, err := devbackend.New(cfg.DevBackend, observability.Named(logger, "devbackend"))
	if err != nil {
		logger.Fatal("failed to seed dev backend", zap.Error(err))
	}

	go func() {
		if err := srv.Listen(cfg.DevBackend.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	_ = srv.Shutdown()
}
