package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/channel"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/channel/mock"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/config"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/dispatch"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/event"
	handler "github.com/IntegratedRai444/zipzydeliver-sub001/internal/handler/http"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/history"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/preference"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/storage/postgres"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/subscription"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/template"
	"github.com/IntegratedRai444/zipzydeliver-sub001/migrations"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/database"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/health"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/httpclient"
	pkgkafka "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/kafka"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/tracing"
)

// App wires together all dependencies and runs the notification engine.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client // nil when Redis is not configured
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	dispatcher     *dispatch.Dispatcher
	historyLog     *history.Log
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "notification",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "notification")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Consumed-event dedup store: Redis when configured, otherwise a
	// process-local fallback that does not survive restarts or scale-out.
	dedupTTL := time.Duration(cfg.EventDedupTTLHours) * time.Hour
	var (
		rdb       *redis.Client
		idemStore pkgkafka.IdempotencyStore
	)
	if cfg.RedisEnabled() {
		rdb, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		idemStore = event.NewRedisIdempotencyStore(rdb, dedupTTL)
		logger.Info("connected to Redis",
			slog.String("host", cfg.RedisHost),
			slog.Int("db", cfg.RedisDB),
		)
	} else {
		idemStore = pkgkafka.NewMemoryIdempotencyStore(dedupTTL)
		logger.Info("event dedup using in-memory store")
	}

	// Initialize Kafka producer and dead letter queue producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	st := postgres.NewStore(pool)
	bus := event.NewBus(logger)
	event.NewProducer(producer, logger).Attach(bus)

	templates := template.NewRegistry(template.Defaults()...)
	prefs := preference.NewStore(st, logger)
	subs := subscription.NewRegistry(st, logger)
	historyLog := history.NewLog(st, subs, templates,
		cfg.HistoryMaxEntries,
		time.Duration(cfg.HistoryRetentionDays)*24*time.Hour,
		time.Duration(cfg.HistoryCleanupMinutes)*time.Minute,
		logger,
	)

	adapters := buildAdapters(ctx, cfg, st, subs, bus, logger)

	dispatcher := dispatch.NewDispatcher(templates, prefs, adapters, historyLog, bus, dispatch.Config{
		PayloadExpiry: time.Duration(cfg.PayloadExpiryHours) * time.Hour,
		SweepInterval: time.Duration(cfg.SweepIntervalSeconds) * time.Second,
	}, logger)

	// Kafka event consumers.
	consumerHandler := event.NewConsumerHandler(dispatcher, logger)
	consumers := event.NewConsumers(cfg.KafkaBrokers, consumerHandler, idemStore, dlq, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if rdb != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// HTTP router.
	notificationHandler := handler.NewNotificationHandler(dispatcher, templates, prefs, subs, historyLog, st, logger)
	router := handler.NewRouter(notificationHandler, healthHandler, logger, cfg.PprofAllowedCIDRs)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		dlq:            dlq,
		consumers:      consumers,
		dispatcher:     dispatcher,
		historyLog:     historyLog,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// buildAdapters assembles the per-channel delivery adapters. Channels whose
// transport credentials are absent get a logging stub instead, so a local
// instance delivers on every channel without external accounts.
func buildAdapters(
	ctx context.Context,
	cfg *config.Config,
	st *postgres.Store,
	subs *subscription.Registry,
	bus *event.Bus,
	logger *slog.Logger,
) []channel.Adapter {
	adapters := make([]channel.Adapter, 0, 4)

	if cfg.PushConfigured() {
		adapters = append(adapters, channel.NewPushAdapter(subs, bus, channel.PushConfig{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.VAPIDSubscriber,
		}, logger))
	} else {
		adapters = append(adapters, mock.NewAdapter(domain.ChannelPush, logger))
		logger.Warn("VAPID keys not configured, push channel using logging stub")
	}

	if cfg.AWSRegion != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, sms and email channels using logging stubs",
				slog.String("error", err.Error()),
			)
			adapters = append(adapters,
				mock.NewAdapter(domain.ChannelSMS, logger),
				mock.NewAdapter(domain.ChannelEmail, logger),
			)
		} else {
			directory := channel.NewHTTPDirectory(httpclient.New(httpclient.Config{
				Timeout:         5 * time.Second,
				MaxRetries:      2,
				RetryWaitMin:    200 * time.Millisecond,
				RetryWaitMax:    2 * time.Second,
				MaxConnsPerHost: 50,
			}), cfg.UserServiceURL)
			adapters = append(adapters,
				channel.NewSMSAdapter(sns.NewFromConfig(awsCfg), directory, bus, 0, logger),
				channel.NewEmailAdapter(ses.NewFromConfig(awsCfg), directory, bus, cfg.EmailFrom, 0, logger),
			)
		}
	} else {
		adapters = append(adapters,
			mock.NewAdapter(domain.ChannelSMS, logger),
			mock.NewAdapter(domain.ChannelEmail, logger),
		)
		logger.Warn("AWS_REGION not configured, sms and email channels using logging stubs")
	}

	adapters = append(adapters, channel.NewInAppAdapter(st, bus, logger))

	return adapters
}

// Run starts the HTTP server, Kafka consumers and background loops, then
// blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Start Kafka consumers.
	for _, consumer := range a.consumers {
		c := consumer
		go func() {
			if err := c.Start(ctx); err != nil {
				a.logger.Error("kafka consumer error", slog.String("error", err.Error()))
			}
		}()
	}

	// Deferred-delivery sweeps and history retention.
	go a.dispatcher.Scheduler().Run(ctx)
	go a.historyLog.Run(ctx)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumers and producers
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka consumers, then producers.
	for _, consumer := range a.consumers {
		if err := consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client and PostgreSQL pool.
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
