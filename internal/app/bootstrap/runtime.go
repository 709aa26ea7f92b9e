package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	cacheadapter "github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	expiry     *eventadapter.ExpiryWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	logger.Info("bootstrapping m15 revenue escrow service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	signer, err := security.NewHMACSigner(cfg.AuditSigningKey)
	if err != nil {
		return nil, fmt.Errorf("init audit signer: %w", err)
	}
	tokens, err := security.NewJWTVerifier(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("init jwt verifier: %w", err)
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	offering, err := grpcadapter.NewOfferingClient(cfg.OfferingGRPCURL)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("dial offering service: %w", err)
	}
	investment, err := grpcadapter.NewInvestmentClient(cfg.InvestmentGRPCURL)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("dial investment service: %w", err)
	}
	wallet, err := grpcadapter.NewWalletClient(cfg.WalletGRPCURL)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("dial wallet service: %w", err)
	}

	var domainEvents ports.DomainPublisher
	var analytics ports.AnalyticsPublisher
	var dlq ports.DLQPublisher
	var closePublisher func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, kafkaErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicEscrowDomain, cfg.TopicEscrowAnalytic, cfg.DLQTopic)
		if kafkaErr != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", kafkaErr)
		}
		domainEvents, analytics, dlq = kafkaPublisher, kafkaPublisher, kafkaPublisher
		closePublisher = kafkaPublisher.Close
	} else {
		logger.Warn("no kafka brokers configured, events will be logged only")
		loggingPublisher := eventadapter.NewLoggingPublisher(logger)
		domainEvents, analytics, dlq = loggingPublisher, loggingPublisher, loggingPublisher
		closePublisher = func() error { return nil }
	}

	repos := postgres.NewRepositories(pool)
	svc, err := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			FeeRate:              cfg.PlatformFeeRate,
			ClaimWindow:          cfg.ClaimWindow,
			VaultLockTTL:         cfg.VaultLockTTL,
			OutboxFlushBatchSize: cfg.OutboxBatchSize,
		},
		Vaults:        repos.Vaults,
		Deposits:      repos.Deposits,
		Distributions: repos.Distributions,
		Claims:        repos.Claims,
		Audit:         repos.AuditLog,
		Ledger:        repos.Ledger,
		Outbox:        repos.Outbox,
		Offerings:     offering,
		Investments:   investment,
		Wallet:        wallet,
		Signer:        signer,
		Locks:         cacheadapter.NewRedisVaultLock(redisClient),
		DomainEvents:  domainEvents,
		Analytics:     analytics,
		DLQ:           dlq,
	})
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init escrow service: %w", err)
	}

	handler := httpadapter.NewHandler(svc, tokens, func() error {
		return sqlDB.Ping()
	})
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpcadapter.Register(grpcServer, grpcadapter.NewEscrowInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	outbox := eventadapter.NewOutboxWorker(logger, svc, cfg.OutboxPollInterval)
	expiry := eventadapter.NewExpiryWorker(logger, svc, cfg.ExpirySweepInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		expiry:     expiry,
		cleanupFn: func(ctx context.Context) {
			_ = offering.Close()
			_ = investment.Close()
			_ = wallet.Close()
			_ = closePublisher()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drives the transactional outbox flush and the claim expiry sweep.
// Both loops exit on signal; workers share the API's persistence wiring.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("outbox worker started")
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("outbox worker: %w", err)
		}
	}()
	go func() {
		r.logger.Info("claim expiry worker started")
		if err := r.expiry.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("expiry worker: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("worker failure", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return runErr
}
