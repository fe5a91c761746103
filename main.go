package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"feedquire/config"
	"feedquire/handlers"
	"feedquire/logger"
	"feedquire/middleware"
	"feedquire/models"
	"feedquire/services"
	"feedquire/utils"
	"feedquire/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot, _ := logger.New("dev")
		boot.Fatal("invalid configuration", "error", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Info("⚠️  No .env file found, reading environment variables directly")
	}

	gormLevel := gormlogger.Warn
	if cfg.LogMode == "prod" {
		gormLevel = gormlogger.Error
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store utils.ObjectStore
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Store(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client", "error", err)
		}
		store = r2
	} else {
		log.Warn("R2 not configured; logo and attachment uploads are disabled")
	}

	var ledger services.EventLedger = services.NewMemoryLedger(24 * time.Hour)
	if cfg.RedisAddr != "" {
		redisLedger, err := services.NewRedisLedger(cfg.RedisAddr, 24*time.Hour)
		if err != nil {
			log.Warn("redis unavailable, using in-process replay ledger", "error", err)
		} else {
			defer redisLedger.Close()
			ledger = redisLedger
		}
	}

	resolver := services.NewEntitlementResolver(db, cfg.ProfileFetchTimeout, log)
	profileService := services.NewProfileService(db, log)
	platformService := services.NewPlatformService(db, store, log)
	questionService := services.NewQuestionService(db, log)
	submissionService := services.NewSubmissionService(db, cfg.PersistAllResponses, cfg.MaxResponseWords, log)
	reviewService := services.NewReviewService(db, cfg.PayoutCurrency, log)
	ticketService := services.NewTicketService(db, store, log)
	paystack := services.NewPaystackClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, utils.HTTPClient)
	paymentService := services.NewPaymentService(db, paystack, ledger, services.PaymentSettings{
		WebhookSecret: cfg.PaystackWebhookSecret,
		PublicKey:     cfg.PaystackPublicKey,
		FeeMinor:      cfg.ActivationFeeMinor,
		Currency:      cfg.ActivationCurrency,
	}, log)

	app := fiber.New(fiber.Config{
		BodyLimit:    utils.MaxUploadSize + 1024*1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Public and internal routes first; the session group below matches every remaining path.
	handlers.SetupPublicRoutes(app, paymentService, log)
	handlers.SetupInternalRoutes(app, cfg.ServiceToken, profileService, paymentService, cfg.UnverifiedTTL, log)

	secured := app.Group("/", middleware.SessionAuth(cfg.SupabaseJWTSecret, log))
	handlers.SetupAccountRoutes(secured, profileService, resolver, paymentService, submissionService, log)
	handlers.SetupFeedbackRoutes(secured, resolver, platformService, questionService, submissionService, log)
	handlers.SetupTicketRoutes(secured, ticketService, log)
	handlers.SetupControlRoutes(secured, handlers.ControlServices{
		Resolver:  resolver,
		Profiles:  profileService,
		Platforms: platformService,
		Questions: questionService,
		Review:    reviewService,
		Tickets:   ticketService,
	}, log)

	sched, err := profileService.StartSweepScheduler(ctx, cfg.SweepInterval, cfg.UnverifiedTTL, log)
	if err != nil {
		log.Fatal("failed to start scheduler", "error", err)
	}

	reconciler := workers.NewPaymentReconcileWorker(paymentService, cfg.ReconcileInterval, log)
	go reconciler.Run(ctx)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("Server error", "error", err)
			stop()
		}
	}()

	log.Info("✅ Server running", "port", cfg.Port)
	log.Info("✅ Unverified sweep scheduled", "every", cfg.SweepInterval.String(), "ttl", cfg.UnverifiedTTL.String())
	log.Info("✅ Payment reconciliation running", "every", cfg.ReconcileInterval.String())
	log.Info("✅ CORS configured", "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Info("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		log.Warn("scheduler shutdown", "error", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("server shutdown", "error", err)
	}
}
