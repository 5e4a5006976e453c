package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/homeservices-portal/internal/api/http"
	"github.com/spec-kit/homeservices-portal/internal/api/http/handlers"
	"github.com/spec-kit/homeservices-portal/internal/apiclient"
	"github.com/spec-kit/homeservices-portal/internal/config"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/guard"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
	"github.com/spec-kit/homeservices-portal/internal/observability"
	"github.com/spec-kit/homeservices-portal/internal/onboarding"
	"github.com/spec-kit/homeservices-portal/internal/persistence"
	"github.com/spec-kit/homeservices-portal/internal/repository"
	"github.com/spec-kit/homeservices-portal/internal/review"
	"github.com/spec-kit/homeservices-portal/internal/service"
	"github.com/spec-kit/homeservices-portal/internal/session"
	"github.com/spec-kit/homeservices-portal/internal/worker"
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

	policy, err := review.ParsePolicy(cfg.Polling.ReviewPolicy)
	if err != nil {
		logger.Fatal("invalid review policy", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	var (
		pg    *persistence.Postgres
		redis *persistence.Redis
	)
	backend, err := sessionBackend(ctx, cfg, logger, &pg, &redis)
	if err != nil {
		logger.Fatal("failed to open session backend", zap.String("driver", cfg.Session.Driver), zap.Error(err))
	}
	defer func() {
		redis.Close()
		if pg != nil {
			pg.Close()
		}
	}()

	tokens, err := session.Open(ctx, backend, observability.Named(logger, "session"))
	if err != nil {
		logger.Fatal("failed to load session", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	nav := navigation.NewNavigator(observability.Named(logger, "navigation"))
	client := apiclient.New(tokens, nav, apiclient.Options{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout(),
		UploadTimeout:  cfg.Backend.UploadTimeout(),
		Logger:         observability.Named(logger, "apiclient"),
		Metrics:        metrics,
		Dispatcher:     dispatcher,
	})

	notifications := service.NewNotificationService(dispatcher, observability.Named(logger, "notices"))

	sessions := service.NewSessionService(tokens, client, nav, dispatcher, observability.Named(logger, "sessions"))

	machine := onboarding.New(client, onboarding.Options{
		PollInterval: cfg.Polling.ProviderInterval(),
		Tokens:       tokens,
		Dispatcher:   dispatcher,
		Logger:       observability.Named(logger, "onboarding"),
	})
	gate := guard.New(tokens, client, nav, guard.Options{
		Providers:  machine,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     observability.Named(logger, "guard"),
	})

	reviewOpts := review.Options{
		Interval:   cfg.Polling.ReviewInterval(),
		Policy:     policy,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     observability.Named(logger, "review"),
	}
	registrations := review.NewRegistrations(client, reviewOpts)
	reports := review.NewReports(client, reviewOpts)
	dashboard := service.NewAdminDashboard(registrations, reports, dispatcher, observability.Named(logger, "dashboard"))

	worker.StartNotificationWorker(notifications, machine, dashboard)
	if sess, ok := tokens.Get(); ok && sess.Role == domain.RoleProvider {
		machine.StartPolling()
	}

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 16 << 20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Session:       handlers.NewSessionHandler(sessions),
		Navigation:    handlers.NewNavigationHandler(gate, nav),
		Provider:      handlers.NewProviderHandler(machine),
		Registrations: handlers.NewReviewListHandler(registrations),
		Reports:       handlers.NewReviewListHandler(reports),
		Dashboard:     handlers.NewDashboardHandler(dashboard),
		Notices:       handlers.NewNoticesHandler(notifications),
		Tokens:        tokens,
		Gatherer:      registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	dashboard.Unmount()
	machine.StopPolling()
	_ = app.Shutdown()
}

// sessionBackend opens the durable store for the configured driver. Connections it
// opens are handed back through pg and redis for health checks and shutdown.
func sessionBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger, pg **persistence.Postgres, redis **persistence.Redis) (session.Backend, error) {
	switch cfg.Session.Driver {
	case config.SessionDriverMemory:
		return session.NewMemoryBackend(), nil
	case config.SessionDriverRedis:
		r, err := persistence.NewRedis(ctx, cfg.Redis, true, logger)
		if err != nil {
			return nil, err
		}
		*redis = r
		return repository.NewSessionCache(r.Client, cfg.Session.RedisKeyPrefix, cfg.Session.Profile, session.ExpiresAt), nil
	case config.SessionDriverPostgres:
		p, err := persistence.NewPostgres(ctx, cfg.Postgres, true, logger)
		if err != nil {
			return nil, err
		}
		*pg = p
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, p.PoolHandle(), logger); err != nil {
				return nil, err
			}
		}
		return repository.NewSessionRepository(p.PoolHandle(), cfg.Session.Profile, session.ExpiresAt), nil
	default:
		return session.NewFileBackend(cfg.Session.FilePath), nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
