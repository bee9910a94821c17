// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wallet-service/config"
	"wallet-service/internal/auth"
	"wallet-service/internal/cache"
	"wallet-service/internal/domain"
	"wallet-service/internal/events"
	"wallet-service/internal/handler"
	"wallet-service/internal/provider/lazerpay"
	"wallet-service/internal/provider/paystack"
	"wallet-service/internal/repository"
	"wallet-service/internal/repository/memstore"
	"wallet-service/internal/router"
	"wallet-service/internal/usecase"
	"wallet-service/internal/worker"
	"wallet-service/internal/ws"
	"wallet-service/migrations"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type repos struct {
	ledger  repository.LedgerRepository
	wallets repository.WalletRepository
	cards   repository.CardRepository
	users   repository.UserRepository
	close   func()
}

func main() {
	_ = godotenv.Load()

	logger, err := newLogger(os.Getenv("ENVIRONMENT"))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting wallet service")

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("lazerpay_network", cfg.Lazerpay.Network))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.close()

	// --- Redis (balance cache + rate limiting) ---
	var (
		balances  cache.BalanceCache = cache.NoopBalanceCache{}
		rateLimit func(http.Handler) http.Handler
	)
	if cfg.Redis.Enabled {
		c, err := cache.NewCache(cfg.Redis)
		if err != nil {
			logger.Fatal("failed to configure redis", zap.Error(err))
		}
		defer c.Close()
		if err := c.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, cache calls will fail open", zap.Error(err))
		}
		balances = cache.NewBalanceCache(c, cfg.Redis.BalanceTTL)
		rateLimit = cache.RateLimiter(c, cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.BlockDuration, "wallet:rl")
		logger.Info("✅ Redis initialized", zap.Strings("addrs", cfg.Redis.Addrs))
	}

	// --- Kafka ---
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka, logger)
		logger.Info("✅ Kafka writer initialized",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	// --- Auth ---
	pub, err := auth.LoadRSAPublicKeyFromPEM(cfg.Auth.JWTPublicKeyPath)
	if err != nil {
		logger.Fatal("failed to load JWT public key", zap.String("path", cfg.Auth.JWTPublicKeyPath), zap.Error(err))
	}
	authMW := auth.NewMiddleware(auth.NewVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience), store.users, logger)

	// --- Providers ---
	paystackProvider := paystack.NewPaystackProvider(cfg.Paystack, logger)
	lazerpayProvider := lazerpay.NewLazerpayProvider(cfg.Lazerpay, logger)

	// --- Usecases ---
	notifier := ws.NewNotifier(logger)
	deps := usecase.Deps{
		Ledger:    store.ledger,
		Wallets:   store.wallets,
		Cards:     store.cards,
		Balances:  balances,
		Publisher: publisher,
		Notifier:  notifier,
		Logger:    logger,
	}
	fiatUC := usecase.NewFiatWalletPayment(paystackProvider, deps)
	cryptoUC := usecase.NewCryptoWalletPayment(lazerpayProvider, deps)
	payments := usecase.NewPayments(store.ledger, fiatUC, cryptoUC)
	walletUC := usecase.NewWalletUsecase(deps)
	webhookUC := usecase.NewWebhookUsecase(fiatUC, cryptoUC, store.ledger, usecase.WebhookConfig{
		PaystackSecret: cfg.Paystack.SecretKey,
		PaystackIPs:    cfg.Paystack.WhitelistedIPs,
		LazerpaySecret: cfg.Lazerpay.SecretKey,
	}, logger)

	// --- Handlers ---
	r := router.SetupRoutes(router.Handlers{
		Wallet:  handler.NewWalletHandler(walletUC, logger),
		Payment: handler.NewPaymentHandler(payments, fiatUC, logger),
		Webhook: handler.NewWebhookHandler(webhookUC, logger),
		WS:      handler.NewWSHandler(walletUC, notifier, cfg.Server.AllowedOrigins, logger),
	}, authMW, router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      rateLimit,
	}, logger)

	// --- Reconcile worker ---
	var reconciler *worker.ReconcileWorker
	if cfg.Reconcile.Enabled {
		var rails []worker.RailVerifier
		for _, name := range cfg.Reconcile.Rails {
			rail, err := domain.ParseRail(name)
			if err != nil {
				logger.Fatal("invalid RECONCILE_RAILS entry", zap.Error(err))
			}
			pr, err := payments.Rail(rail)
			if err != nil {
				logger.Fatal("invalid RECONCILE_RAILS entry", zap.Error(err))
			}
			rails = append(rails, pr)
		}
		reconciler = worker.NewReconcileWorker(store.ledger, rails, cfg.Reconcile, logger)
		go reconciler.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	if reconciler != nil {
		reconciler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repos, error) {
	if cfg.Storage.Driver == "memory" {
		s := memstore.New()
		for _, entry := range cfg.Storage.SeedUsers {
			id, email, _ := strings.Cut(entry, ":")
			if err := s.CreateUser(ctx, &domain.User{ID: id, Email: email, IsActive: true, IsVerified: true}); err != nil {
				return nil, fmt.Errorf("failed to seed user %q: %w", id, err)
			}
		}
		logger.Warn("using in-memory storage, data is lost on restart",
			zap.Int("seeded_users", len(cfg.Storage.SeedUsers)))
		return &repos{ledger: s, wallets: s, cards: s, users: s.Users(), close: func() {}}, nil
	}

	if cfg.Database.RunMigrations {
		if err := migrations.Up(ctx, cfg.Database.URL()); err != nil {
			return nil, err
		}
		logger.Info("✅ Migrations applied")
	}

	pool, err := repository.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &repos{
		ledger:  repository.NewLedgerRepository(pool),
		wallets: repository.NewWalletRepository(pool),
		cards:   repository.NewCardRepository(pool),
		users:   repository.NewUserRepository(pool),
		close:   pool.Close,
	}, nil
}
