package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/skozubek/startsnap/internal/algorand"
	"github.com/skozubek/startsnap/internal/api"
	"github.com/skozubek/startsnap/internal/auth"
	"github.com/skozubek/startsnap/internal/cache"
	"github.com/skozubek/startsnap/internal/config"
	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/logging"
	"github.com/skozubek/startsnap/internal/migrations"
	"github.com/skozubek/startsnap/internal/observability"
	"github.com/skozubek/startsnap/internal/outbox"
	"github.com/skozubek/startsnap/internal/persistence/memory"
	"github.com/skozubek/startsnap/internal/persistence/postgres"
	"github.com/skozubek/startsnap/internal/ratelimit"
	"github.com/skozubek/startsnap/internal/tipping"
	httptransport "github.com/skozubek/startsnap/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("service", "startsnap-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repo       domain.Repository
		dispatcher *outbox.Dispatcher
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data and events are not persisted")
		repo = memory.NewRepository()
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			db := stdlib.OpenDBFromPool(pool)
			if err := migrations.Apply(ctx, db); err != nil {
				logger.WithError(err).Fatal("failed to apply migrations")
			}
			_ = db.Close()
		}
		repo = postgres.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	}

	algod, err := algorand.NewAlgodNode(cfg.AlgodURL, cfg.AlgodToken)
	if err != nil {
		logger.WithError(err).Fatal("failed to create algod client")
	}
	var balances cache.BalanceCache = cache.NoopCache{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.BalanceCacheTTL)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisCache.Close()
		balances = redisCache
	}
	node := cache.NewCachedNode(algod, balances, logger)

	service := domain.NewService(repo)
	tips := tipping.NewService(repo, node, node, logger, tipping.Options{
		ConfirmationRounds: cfg.TipConfirmationRounds,
		SubmitTimeout:      cfg.TipSubmitTimeout,
	})

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	api.NewHandler(service, tips, logger).RegisterRoutes(router)

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	limiter.OnLimit = api.WriteRateLimited
	limiter.StartCleanup(time.Minute, ctx.Done())

	authMiddleware := auth.NewMiddleware(auth.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}, api.WriteAuthError)

	router.Use(observability.HTTPMiddleware, authMiddleware.Wrap, limiter.Handler)

	handler := logging.Middleware(logger)(httptransport.CORS(cfg.CORSOrigin)(router))
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:     cfg.HTTPAddress,
		ReadTimeout: 5 * time.Second,
		// Tip submission holds the request open until the transfer confirms.
		WriteTimeout: cfg.TipSubmitTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}, handler)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("address", cfg.HTTPAddress).Info("startsnap api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh
	logger.Info("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
