package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	httpAdapter "github.com/iho/loanledger/internal/adapter/http"
	"github.com/iho/loanledger/internal/adapter/http/handler"
	"github.com/iho/loanledger/internal/adapter/http/middleware"
	"github.com/iho/loanledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/loanledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/loanledger/internal/adapter/repository/redis"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/auth"
	"github.com/iho/loanledger/internal/infrastructure/config"
	"github.com/iho/loanledger/internal/infrastructure/eventpublisher"
	"github.com/iho/loanledger/internal/infrastructure/idgen"
	"github.com/iho/loanledger/internal/infrastructure/logger"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
	"github.com/iho/loanledger/internal/infrastructure/postgres"
	"github.com/iho/loanledger/internal/infrastructure/redis"
	"github.com/iho/loanledger/internal/usecase"
)

const (
	rateLimitCleanupInterval = time.Minute
	rateLimitMaxIdle         = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// storage is the set of repositories behind one driver.
type storage struct {
	txManager    usecase.TransactionManager
	customers    usecase.CustomerRepository
	fund         usecase.FundRepository
	deposits     usecase.MicroDepositRepository
	transactions usecase.TransactionRepository
	outbox       usecase.OutboxRepository
	retrier      usecase.Retrier
	checks       []handler.Check
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &storage{
			txManager:    memory.NewTxManager(store),
			customers:    memory.NewCustomerRepository(store),
			fund:         memory.NewFundRepository(store),
			deposits:     memory.NewMicroDepositRepository(store),
			transactions: memory.NewTransactionRepository(store),
			outbox:       memory.NewOutboxRepository(store),
			close:        func() {},
		}, nil

	case config.StorageDriverPostgres:
		if cfg.AutoMigrate {
			if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log).Up(); err != nil {
				return nil, err
			}
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("connected to postgres")

		return &storage{
			txManager:    postgresRepo.NewTxManager(pool),
			customers:    postgresRepo.NewCustomerRepository(pool),
			fund:         postgresRepo.NewFundRepository(pool),
			deposits:     postgresRepo.NewMicroDepositRepository(pool),
			transactions: postgresRepo.NewTransactionRepository(pool),
			outbox:       postgresRepo.NewOutboxRepository(pool),
			retrier:      postgresRepo.NewRetrier(log, m),
			checks: []handler.Check{
				{Name: "postgres", Ping: pool.Ping},
			},
			close: pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// seedFund initializes the fund from INITIAL_FUND. An existing fund is left alone.
func seedFund(ctx context.Context, fundUC *usecase.FundUseCase, initial string, log zerolog.Logger) error {
	if initial == "" {
		return nil
	}

	amount, err := decimal.NewFromString(initial)
	if err != nil {
		return fmt.Errorf("invalid INITIAL_FUND: %w", err)
	}

	fund, err := fundUC.Initialize(ctx, amount)
	if errors.Is(err, domain.ErrFundExists) {
		log.Info().Msg("bank fund already initialized, seed skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed bank fund: %w", err)
	}

	log.Info().Str("fund_for_loan", fund.FundForLoan.StringFixed(2)).Msg("bank fund seeded")
	return nil
}

// app is a fully wired server with its background workers.
type app struct {
	handler   http.Handler
	publisher *eventpublisher.EventPublisher
	limiter   *middleware.RateLimiter
	close     func()
}

func buildApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := openStorage(ctx, cfg, log, m)
	if err != nil {
		return nil, err
	}
	closers := []func(){store.close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		idempotencyStore usecase.IdempotencyStore
		publisher        eventpublisher.Publisher = eventpublisher.NewLogPublisher(log)
	)
	if cfg.RedisEnabled {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		log.Info().Msg("connected to redis")

		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		publisher = eventpublisher.NewRedisPublisher(redisClient, cfg.OutboxChannel)
		store.checks = append(store.checks, handler.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redis.Ping(ctx, redisClient) },
		})
	}

	idGen := idgen.NewULIDGenerator()

	ledgerUC := usecase.NewLedgerUseCase(
		store.txManager, store.customers, store.fund, store.deposits, store.transactions, store.outbox,
		idGen, store.retrier, m, log,
	)
	customerUC := usecase.NewCustomerUseCase(store.txManager, store.customers, store.transactions, store.outbox, idGen, m)
	fundUC := usecase.NewFundUseCase(store.txManager, store.fund, store.outbox, idGen)
	reconUC := usecase.NewReconciliationUseCase(store.txManager, store.customers, store.transactions, store.fund)

	if err := seedFund(ctx, fundUC, cfg.InitialFund, log); err != nil {
		closeAll()
		return nil, err
	}

	var authenticator *middleware.Authenticator
	if cfg.AuthEnabled {
		authenticator = middleware.NewAuthenticator(auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration), m, log)
	} else {
		log.Warn().Msg("authentication disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		CustomerHandler:       handler.NewCustomerHandler(customerUC),
		LedgerHandler:         handler.NewLedgerHandler(ledgerUC),
		FundHandler:           handler.NewFundHandler(fundUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconUC),
		HealthHandler:         handler.NewHealthHandler(store.checks...),
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		Authenticator:         authenticator,
		RateLimiter:           limiter,
		Metrics:               m,
		MetricsHandler:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:                log,
	})

	outboxWorker := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: store.outbox,
		Publisher:  publisher,
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	return &app{
		handler:   router,
		publisher: outboxWorker,
		limiter:   limiter,
		close:     closeAll,
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = a.publisher.Start(workerCtx)
	}()
	go func() {
		defer wg.Done()
		a.limiter.RunCleanup(workerCtx, rateLimitCleanupInterval, rateLimitMaxIdle)
	}()
	defer func() {
		cancelWorkers()
		wg.Wait()
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
