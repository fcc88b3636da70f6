package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/legal-intake/internal/api/http"
	"github.com/spec-kit/legal-intake/internal/api/http/handlers"
	"github.com/spec-kit/legal-intake/internal/auth"
	"github.com/spec-kit/legal-intake/internal/classifier"
	"github.com/spec-kit/legal-intake/internal/config"
	"github.com/spec-kit/legal-intake/internal/events"
	"github.com/spec-kit/legal-intake/internal/observability"
	"github.com/spec-kit/legal-intake/internal/persistence"
	"github.com/spec-kit/legal-intake/internal/repository"
	"github.com/spec-kit/legal-intake/internal/sequence"
	"github.com/spec-kit/legal-intake/internal/service"
	"github.com/spec-kit/legal-intake/internal/worker"
)

const (
	notificationQueueSize = 256
	shutdownTimeout       = 10 * time.Second
)

type stores struct {
	tickets  repository.TicketRepository
	history  repository.TicketHistoryRepository
	profiles repository.ProfileRepository
}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	var readiness []handlers.Dependency

	var pg *persistence.Postgres
	if cfg.Storage.Driver == config.StorageDriverPostgres {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		readiness = append(readiness, handlers.Dependency{Name: "postgres", Pinger: pg})
	}

	// Redis backs the role cache whenever tickets are durable, and the
	// sequence when selected.
	var cache redis.Cmdable
	if cfg.Storage.Driver == config.StorageDriverPostgres || cfg.Sequence.Backend == config.SequenceBackendRedis {
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer rdb.Close()
		cache = rdb.Client
		readiness = append(readiness, handlers.Dependency{Name: "redis", Pinger: rdb})
	}

	repos := newStores(pg)
	allocator := newAllocator(cfg.Sequence, pg, cache)

	classify, err := newClassifier(cfg.Classifier, metrics, logger)
	if err != nil {
		logger.Fatal("failed to init classifier", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(logger, cfg.Notification)
	notifier := worker.NewNotificationWorker(dispatcher, notifications, notificationQueueSize, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		HistoryRepo: repos.history,
		ProfileRepo: repos.profiles,
		Allocator:   allocator,
		Classifier:  classify,
		Dispatcher:  dispatcher,
		Counter:     metrics,
		Pagination:  cfg.Pagination,
		Logger:      logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	resolver := auth.NewRoleResolver(repos.profiles, cache, cfg.Auth.RoleCacheTTL(), logger)
	guard := auth.NewGuard(tokens, resolver, cfg.App.LandingPath)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, readiness...),
		Tickets:       handlers.NewTicketsHandler(ticketService),
		LawyerTickets: handlers.NewLawyerTicketsHandler(ticketService),
		Guard:         guard,
	})

	ln, err := net.Listen("tcp", cfg.App.Addr())
	if err != nil {
		logger.Fatal("http listen", zap.Error(err))
	}
	logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("storage", cfg.Storage.Driver))
	if err := serve(ctx, app, ln, notifier, logger); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
	}
}

type backgroundWorker interface {
	Run(ctx context.Context) error
}

// serve runs the HTTP server and the worker until ctx is done. The worker is
// stopped only after in-flight requests finish, so events they publish are
// still handled.
func serve(ctx context.Context, app *fiber.App, ln net.Listener, bg backgroundWorker, logger *zap.Logger) error {
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bg.Run(workerCtx)
	})
	g.Go(func() error {
		return app.Listener(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		err := app.ShutdownWithTimeout(shutdownTimeout)
		stopWorker()
		return err
	})
	return g.Wait()
}

func newStores(pg *persistence.Postgres) stores {
	if pg == nil {
		return stores{
			tickets:  repository.NewMemoryTicketRepository(),
			history:  repository.NewMemoryTicketHistoryRepository(),
			profiles: repository.NewMemoryProfileRepository(),
		}
	}
	pool := pg.PoolHandle()
	return stores{
		tickets:  repository.NewTicketRepository(pool),
		history:  repository.NewTicketHistoryRepository(pool),
		profiles: repository.NewProfileRepository(pool),
	}
}

func newAllocator(cfg config.SequenceConfig, pg *persistence.Postgres, cache redis.Cmdable) sequence.Allocator {
	switch cfg.Backend {
	case config.SequenceBackendPostgres:
		return sequence.NewPostgresAllocator(pg.PoolHandle(), cfg.CounterName)
	case config.SequenceBackendRedis:
		return sequence.NewRedisAllocator(cache, cfg.CounterName)
	}
	return sequence.NewMemoryAllocator()
}

func newClassifier(cfg config.ClassifierConfig, metrics *observability.Metrics, logger *zap.Logger) (*classifier.Service, error) {
	model, err := classifier.NewModel(cfg)
	if err != nil {
		return nil, err
	}
	reference := classifier.NewReferenceContext(cfg.ContextURL, cfg.ContextMaxChars, cfg.ContextTTL(),
		&http.Client{Timeout: cfg.Timeout()}, logger)
	return classifier.New(model, classifier.Options{
		Timeout:      cfg.Timeout(),
		RetryBackoff: cfg.RetryBackoff(),
		Limiter:      classifier.NewLimiter(cfg.RatePerSecond, cfg.RateBurst),
		Reference:    reference,
		Recorder:     metrics,
	}, logger), nil
}
