package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/trungse123/review-backend/internal/config"
	"github.com/trungse123/review-backend/internal/cooldown"
	"github.com/trungse123/review-backend/internal/event"
	handler "github.com/trungse123/review-backend/internal/handler/http"
	"github.com/trungse123/review-backend/internal/purchase"
	"github.com/trungse123/review-backend/internal/repository"
	"github.com/trungse123/review-backend/internal/repository/memory"
	"github.com/trungse123/review-backend/internal/repository/mongodb"
	"github.com/trungse123/review-backend/internal/repository/postgres"
	"github.com/trungse123/review-backend/internal/rewards"
	"github.com/trungse123/review-backend/internal/service"
	"github.com/trungse123/review-backend/internal/storage"
	"github.com/trungse123/review-backend/internal/storage/local"
	memstorage "github.com/trungse123/review-backend/internal/storage/memory"
	s3storage "github.com/trungse123/review-backend/internal/storage/s3"
	"github.com/trungse123/review-backend/migrations"
	"github.com/trungse123/review-backend/pkg/database"
	"github.com/trungse123/review-backend/pkg/health"
	"github.com/trungse123/review-backend/pkg/httpclient"
	pkgkafka "github.com/trungse123/review-backend/pkg/kafka"
	"github.com/trungse123/review-backend/pkg/middleware"
	"github.com/trungse123/review-backend/pkg/tracing"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	mongo          *database.MongoDB
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dispatcher     *rewards.Dispatcher
	httpServer     *http.Server
	health         *health.Handler
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "review",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()
	a.health = healthHandler

	repo, err := a.initStore(ctx, healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Cooldown reservations.
	var guard cooldown.Guard = cooldown.NewMemoryGuard()
	if cfg.RedisEnabled {
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB

		client, err := database.NewRedisClient(ctx, redisCfg, logger)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		guard = cooldown.NewRedisGuard(client)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	}

	// Kafka producer and domain events.
	var events service.EventPublisher = event.NopProducer{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Outbound HTTP client with circuit breaker, shared by the order API and
	// the loyalty service.
	outbound := func(name string) *httpclient.CircuitBreakerClient {
		base := httpclient.New(httpclient.Config{
			Timeout:         10 * time.Second,
			MaxRetries:      2,
			RetryWaitMin:    200 * time.Millisecond,
			RetryWaitMax:    2 * time.Second,
			MaxConnsPerHost: 50,
		})
		return httpclient.NewCircuitBreakerClient(base, httpclient.CircuitBreakerConfig{
			Name:         name,
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     time.Duration(cfg.CBInterval) * time.Second,
			Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		}, logger)
	}

	var verifier purchase.Verifier = purchase.NopVerifier{}
	if cfg.PurchaseVerifyURL != "" {
		verifier = purchase.NewHaravanClient(outbound("order-api"), purchase.HaravanConfig{
			BaseURL: cfg.PurchaseVerifyURL,
			Token:   cfg.PurchaseVerifyToken,
		})
		logger.Info("purchase verification enabled", slog.String("url", cfg.PurchaseVerifyURL))
	}

	// Loyalty rewards.
	var notifier rewards.Notifier = rewards.NopNotifier{}
	switch cfg.RewardsTransport {
	case config.RewardsHTTP:
		notifier = rewards.NewHTTPNotifier(outbound("loyalty"), rewards.HTTPConfig{
			URL:   cfg.RewardsURL,
			Token: cfg.RewardsToken,
		})
	case config.RewardsKafka:
		notifier = rewards.NewKafkaNotifier(a.producer, event.SourceReviewService)
	}
	dispatcherCfg := rewards.DefaultDispatcherConfig()
	dispatcherCfg.MaxAttempts = cfg.RewardsMaxAttempts
	a.dispatcher = rewards.NewDispatcher(notifier, dispatcherCfg, logger)
	logger.Info("rewards dispatcher initialized", slog.String("transport", notifier.Name()))

	// Media storage.
	store, mediaDir, err := a.initMedia(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Build the dependency graph.
	reviewService := service.NewReviewService(service.Deps{
		Repo:     repo,
		Guard:    guard,
		Verifier: verifier,
		Rewards:  a.dispatcher,
		Events:   events,
	}, service.Options{
		VerifyTimeout: cfg.PurchaseVerifyTimeout(),
		QuotaLocation: cfg.QuotaLocation(),
	}, logger)
	mediaService := service.NewMediaService(store, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	// HTTP router.
	router := handler.NewRouter(reviewService, mediaService, healthHandler, handler.RouterConfig{
		CORS:           corsCfg,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MediaDir:       mediaDir,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initStore connects the configured review store and registers it as the
// critical readiness check.
func (a *App) initStore(ctx context.Context, healthHandler *health.Handler) (repository.ReviewRepository, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.StoreDriver {
	case config.StoreMongo:
		mongoCfg := database.DefaultMongoConfig()
		mongoCfg.URI = cfg.MongoURI
		mongoCfg.Database = cfg.MongoDB

		db, err := database.NewMongoDB(ctx, mongoCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		a.mongo = db
		logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDB))

		repo := mongodb.NewReviewRepository(db.Database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		healthHandler.RegisterCritical("mongo", db.Ping)
		return repo, nil

	case config.StoreMemory:
		logger.Warn("using in-memory review store; data is lost on restart")
		return memory.NewReviewRepository(), nil

	default:
		pgCfg := database.PostgresConfig{
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPass,
			DBName:          cfg.PostgresDB,
			SSLMode:         cfg.PostgresSSL,
			AppName:         "review-service",
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
			MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
		}

		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(pool, "review"); err != nil {
			logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
		}

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		return postgres.NewReviewRepository(pool), nil
	}
}

// initMedia builds the media store. The returned directory is non-empty when
// files live on local disk and should be served by the router.
func (a *App) initMedia(ctx context.Context) (storage.Storage, string, error) {
	cfg := a.cfg

	switch cfg.MediaDriver {
	case config.MediaS3:
		store, err := s3storage.New(ctx, s3storage.Config{
			Bucket:    cfg.MediaS3Bucket,
			Region:    cfg.MediaS3Region,
			CDNDomain: cfg.MediaCDNDomain,
			Endpoint:  cfg.MediaS3Endpoint,
		})
		if err != nil {
			return nil, "", fmt.Errorf("init s3 media storage: %w", err)
		}
		a.logger.Info("media storage: s3", slog.String("bucket", cfg.MediaS3Bucket))
		return store, "", nil

	case config.MediaMemory:
		a.logger.Warn("using in-memory media storage; uploads are lost on restart")
		return memstorage.New(cfg.MediaPublicURL()), "", nil

	default:
		store, err := local.New(cfg.MediaLocalDir, cfg.MediaPublicURL())
		if err != nil {
			return nil, "", fmt.Errorf("init local media storage: %w", err)
		}
		a.logger.Info("media storage: local", slog.String("dir", store.Dir()))
		return store, store.Dir(), nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeAll()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Rewards dispatcher (let pending notifications finish)
// 3. Tracer, Kafka, Redis and the review store
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")
	a.health.SetDraining()

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases every initialized dependency. It is safe to call on a
// partially built App.
func (a *App) closeAll() error {
	var errs []error

	if a.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.dispatcher.Close(ctx); err != nil {
			a.logger.Error("rewards dispatcher close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		cancel()
	}

	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		cancel()
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.mongo.Close(ctx); err != nil {
			a.logger.Error("mongo close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		cancel()
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
