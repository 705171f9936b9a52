package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"goldtrade/configs"
	"goldtrade/internal/adapter/cache"
	"goldtrade/internal/adapter/email"
	"goldtrade/internal/adapter/httpclient"
	"goldtrade/internal/adapter/realtime"
	"goldtrade/internal/adapter/slip"
	"goldtrade/internal/adapter/telegram"
	"goldtrade/internal/database"
	delivery "goldtrade/internal/delivery/http"
	"goldtrade/internal/domain"
	"goldtrade/internal/infra"
	"goldtrade/internal/logger"
	"goldtrade/internal/metrics"
	"goldtrade/internal/middleware"
	"goldtrade/internal/repository"
	"goldtrade/internal/service"
	"goldtrade/internal/usecase"
	"goldtrade/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("goldtrade exited", zap.Error(err))
	}
}

func run(cfg *configs.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	db, err := infra.NewDatabase(ctx, cfg.Database.URL, logg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, logg); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	rdb, err := infra.NewRedis(ctx, cfg.Redis.URL, logg)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	// Repositories
	ledgerStore := repository.NewLedgerStore(db)
	userRepo := repository.NewUserRepository(db)
	limitRepo := repository.NewDepositLimitRepository(db)
	settingsRepo := repository.NewSystemSettingsRepository(db)

	if err := ensureAdmin(ctx, userRepo, cfg.Admin, logg); err != nil {
		return err
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.New(reg)

	// Upstream clients
	upstream := httpclient.New(logg, cfg.Price.HTTPTimeout, cfg.Price.HTTPRetryMax)
	priceFeed := service.NewMarketPriceService(upstream, cfg.Price.URL)
	slipClient := slip.NewClient(upstream, cfg.Slip.APIURL, cfg.Slip.APIKey)

	// Prices
	quoteCache := cache.NewQuoteCache(rdb, cfg.Redis.QuoteTTL)
	priceService := service.NewPriceService(priceFeed, quoteCache, settingsRepo, ledgerMetrics, logg)

	// Notifications
	publisher := realtime.NewPublisher(rdb, cfg.Redis.Channel, logg)
	telegramChannel, err := telegram.NewNotificationService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIURL)
	if err != nil {
		return err
	}
	emailChannel, err := email.NewNotificationService(email.Config{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		From:      cfg.SMTP.From,
		Operators: cfg.SMTP.Operators,
	}, userRepo)
	if err != nil {
		return err
	}
	notifier := service.NewNotificationService(
		publisher,
		[]domain.NotificationChannel{telegramChannel, emailChannel},
		ledgerMetrics,
		logg,
		10*time.Second,
	)

	// Usecases
	ledgerService := usecase.NewLedgerService(ledgerStore, userRepo, notifier, ledgerMetrics, logg, usecase.LedgerConfig{
		AllowNegativeBalance: cfg.Trading.AllowNegativeBalance,
		EnforceStock:         cfg.Trading.EnforceStock,
	})
	withdrawalService := usecase.NewWithdrawalService(ledgerStore, notifier, ledgerMetrics, logg)
	depositService := usecase.NewDepositService(
		ledgerStore,
		slipClient,
		domain.Receiver{
			BankID:          cfg.Slip.ReceiverBankID,
			AccountFragment: cfg.Slip.ReceiverAccount,
			NameTH:          cfg.Slip.ReceiverNameTH,
			NameEN:          cfg.Slip.ReceiverNameEN,
		},
		cfg.Slip.MaxBytes,
		notifier,
		ledgerMetrics,
		logg,
	)

	// HTTP API
	window, err := utils.ParseClockWindow(cfg.Trading.Open, cfg.Trading.Close)
	if err != nil {
		return fmt.Errorf("invalid trading hours: %w", err)
	}
	jwtAuth := middleware.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	delivery.SetupRoutes(e, &delivery.RouterConfig{
		AuthHandler:    delivery.NewAuthHandler(userRepo, jwtAuth, !cfg.IsDevelopment(), logg),
		UserHandler:    delivery.NewUserHandler(userRepo, ledgerService, withdrawalService, logg),
		DepositHandler: delivery.NewDepositHandler(depositService, int64(cfg.Slip.MaxBytes), logg),
		PriceHandler:   delivery.NewPriceHandler(priceService, publisher, logg),
		AdminHandler: delivery.NewAdminHandler(
			ledgerService,
			withdrawalService,
			priceService,
			settingsRepo,
			userRepo,
			limitRepo,
			logg,
		),
		Auth:         jwtAuth,
		TradingGuard: middleware.NewTradingGuard(settingsRepo, window, logg),
		Logger:       logg,
		BodyLimit:    "1M",
	})

	apiServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      e,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	opsServer := &http.Server{
		Addr: ":" + cfg.Server.OpsPort,
		Handler: infra.NewOpsRouter("goldtrade", reg, map[string]infra.HealthCheck{
			"database": db.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Scheduler
	scheduler := infra.NewScheduler(priceService, cfg.Price.RefreshCron, logg)
	if err := scheduler.RunNow(); err != nil {
		logg.Warn("initial price refresh failed", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Stop()

	logg.Info("goldtrade starting",
		zap.String("env", cfg.Server.Env),
		zap.String("api_addr", apiServer.Addr),
		zap.String("ops_addr", opsServer.Addr),
		zap.Bool("enforce_stock", cfg.Trading.EnforceStock),
		zap.Bool("allow_negative_balance", cfg.Trading.AllowNegativeBalance),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer) })
	g.Go(func() error { return serve(opsServer) })
	g.Go(func() error {
		<-gctx.Done()
		logg.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return errors.Join(
			apiServer.Shutdown(shutdownCtx),
			opsServer.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logg.Info("server exited gracefully")
	return nil
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", srv.Addr, err)
	}
	return nil
}

// ensureAdmin creates the configured admin account on first start
func ensureAdmin(ctx context.Context, userRepo domain.UserRepository, admin configs.AdminConfig, logg *zap.Logger) error {
	if admin.Email == "" {
		return nil
	}
	emailAddr := strings.ToLower(strings.TrimSpace(admin.Email))

	existing, err := userRepo.GetByEmail(ctx, emailAddr)
	if err == nil {
		if !existing.IsAdmin() {
			logg.Warn("configured admin email belongs to a member account", zap.String("email", emailAddr))
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required to create %s", emailAddr)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        emailAddr,
		Name:         "Administrator",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	logg.Info("created admin account", zap.String("email", emailAddr))
	return nil
}
