package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/escola-ledger-api/internal/config"
	"github.com/noah-isme/escola-ledger-api/internal/database"
	"github.com/noah-isme/escola-ledger-api/internal/handler"
	"github.com/noah-isme/escola-ledger-api/internal/middleware"
	"github.com/noah-isme/escola-ledger-api/internal/repository"
	"github.com/noah-isme/escola-ledger-api/internal/router"
	"github.com/noah-isme/escola-ledger-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	backfilled, err := database.Migrate(context.Background(), db)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	if backfilled > 0 {
		logger.Info().Int64("service_types", backfilled).Msg("service categories backfilled")
	}

	// Cache and events are optional; the ledger works without them.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, ledger cache disabled")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, ledger events disabled")
		} else {
			defer natsConn.Drain()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)

	cascadeTx := repository.TxOptions{MaxWait: cfg.CascadeTxMaxWait, Timeout: cfg.CascadeTxTimeout}
	paymentTx := repository.TxOptions{MaxWait: cfg.CascadeTxMaxWait, Timeout: cfg.PaymentTxTimeout}
	if cfg.SerializablePayment {
		paymentTx.Isolation = sql.LevelSerializable
	}

	ledgerCache := service.NewLedgerCache(redisClient, cfg.LedgerCacheTTL, logger)
	publisher := service.NewLedgerPublisher(natsConn, cfg.NATSSubject, logger)
	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)

	ledgerService := service.NewLedgerService(service.LedgerComponents{
		Tuition:  service.NewTuitionService(repos, ledgerCache, cfg.DebtConcurrency, logger),
		Vouchers: service.NewVoucherService(repos, logger),
		CreditNotes: service.NewCreditNoteService(uow, cascadeTx, validate, service.CreditNoteDependencies{
			Cache:    ledgerCache,
			Activity: activityService,
			Events:   publisher,
		}, logger),
		Deletions: service.NewStudentDeletionService(uow, cascadeTx, service.StudentDeletionDependencies{
			Cache:    ledgerCache,
			Activity: activityService,
			Events:   publisher,
		}, logger),
		Payments: service.NewPaymentService(repos, uow, service.PaymentOptions{
			Tx:          paymentTx,
			MaxAttempts: cfg.PaymentTxAttempts,
		}, validate, service.PaymentDependencies{
			Cache:    ledgerCache,
			Activity: activityService,
			Events:   publisher,
		}, logger),
	}, logger)

	enrollmentService := service.NewEnrollmentService(repos, validate, ledgerCache, activityService, logger)
	guardianService := service.NewGuardianService(uow, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		LedgerHandler:     handler.NewLedgerHandler(ledgerService, logger),
		PaymentHandler:    handler.NewPaymentHandler(ledgerService, logger),
		CreditNoteHandler: handler.NewCreditNoteHandler(ledgerService, logger),
		EnrollmentHandler: handler.NewEnrollmentHandler(enrollmentService, logger),
		GuardianHandler:   handler.NewGuardianHandler(guardianService, logger),
		ActivityHandler:   handler.NewAdminActivityHandler(activityService, logger),
		JWTMiddleware:     middleware.JWTProtected(middleware.JWTOptions{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Leeway: 30 * time.Second}),
		Database:          sqlDB,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
