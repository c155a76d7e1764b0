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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"mekaniku/internal/analytics"
	analytics_api "mekaniku/internal/analytics/api"
	"mekaniku/internal/auth"
	"mekaniku/internal/auth/auth_api"
	auth_db "mekaniku/internal/auth/db"
	"mekaniku/internal/booking"
	"mekaniku/internal/booking/booking_api"
	booking_db "mekaniku/internal/booking/db"
	"mekaniku/internal/chat"
	"mekaniku/internal/chat/chat_api"
	"mekaniku/internal/config"
	"mekaniku/internal/consultation"
	"mekaniku/internal/consultation/consultation_api"
	consultation_db "mekaniku/internal/consultation/db"
	"mekaniku/internal/database"
	"mekaniku/internal/database/migrations"
	"mekaniku/internal/dispatch"
	"mekaniku/internal/kafka"
	"mekaniku/internal/logger"
	"mekaniku/internal/notification"
	notification_db "mekaniku/internal/notification/db"
	"mekaniku/internal/notification/notification_api"
	"mekaniku/internal/payment"
	payment_db "mekaniku/internal/payment/db"
	"mekaniku/internal/payment/payment_api"
	"mekaniku/internal/ratelimit"
	"mekaniku/internal/report"
	report_db "mekaniku/internal/report/db"
	"mekaniku/internal/report/report_api"
	"mekaniku/internal/review"
	"mekaniku/internal/review/review_api"
	"mekaniku/internal/servicing"
	servicing_db "mekaniku/internal/servicing/db"
	"mekaniku/internal/servicing/servicing_api"
	"mekaniku/internal/sse"
	"mekaniku/internal/utils"
	"mekaniku/internal/vehicle"
	vehicle_db "mekaniku/internal/vehicle/db"
	"mekaniku/internal/vehicle/vehicle_api"
	"mekaniku/internal/workshop"
	workshop_db "mekaniku/internal/workshop/db"
	"mekaniku/internal/workshop/workshop_api"
)

var startedAt = time.Now()

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.Database.MigrationsDir,
			AutoMigrate:   true,
		}, log)
		if err := runner.Run(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("REDIS", err.Error())
	}
	return bunDB, redisClient
}

// setupNotifications picks the delivery path for committed notifications.
// With Kafka enabled every instance consumes the topic and relays into its
// own SSE broker.
func setupNotifications(ctx context.Context, cfg *config.Config, broker *sse.NotificationBroker, producer *kafka.Producer, log *logger.Logger) (notification.Publisher, *kafka.Consumer) {
	if producer == nil {
		log.Info("NOTIFICATION", "Delivering notifications through the in-process broker")
		return &notification.BrokerPublisher{Broker: broker}, nil
	}

	groupID := cfg.Kafka.GroupID
	if host, err := os.Hostname(); err == nil {
		groupID = groupID + "-" + host
	}
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Notifications, groupID, log)
	go consumer.Start(ctx, notification.RelayHandler(broker))

	log.Info("NOTIFICATION", fmt.Sprintf("Delivering notifications through Kafka topic %s", cfg.Kafka.Topics.Notifications))
	return &notification.KafkaPublisher{Writer: producer, Topic: cfg.Kafka.Topics.Notifications}, consumer
}

func setupGateway(cfg config.PaymentConfig, log *logger.Logger) payment.Gateway {
	switch strings.ToLower(cfg.Provider) {
	case "stripe":
		gateway, err := payment.NewStripeGateway(cfg.StripeSecretKey, log)
		if err != nil {
			log.Fatal("PAYMENT", fmt.Sprintf("Stripe gateway: %v", err))
		}
		if cfg.StripeAPIURL != "" {
			gateway = gateway.WithAPIURL(cfg.StripeAPIURL)
		}
		log.Info("PAYMENT", "Using Stripe payment gateway")
		return gateway
	default:
		log.Info("PAYMENT", fmt.Sprintf("Using mock payment gateway (failure rate %.2f)", cfg.MockFailureRate))
		return payment.NewMockGateway(cfg.MockFailureRate)
	}
}

func setupRateLimiter(ctx context.Context, cfg config.RateLimitConfig, redisClient *redis.Client, log *logger.Logger) *ratelimit.Limiter {
	if cfg.Backend == "redis" {
		log.Info("RATELIMIT", fmt.Sprintf("Redis rate limiter: %d requests per %s", cfg.Max, cfg.Window))
		return ratelimit.NewLimiter(ratelimit.NewRedisStore(redisClient), cfg.Max, cfg.Window, log)
	}
	store := ratelimit.NewMemoryStore()
	store.StartSweeper(ctx, cfg.SweepInterval)
	log.Info("RATELIMIT", fmt.Sprintf("In-memory rate limiter: %d requests per %s", cfg.Max, cfg.Window))
	return ratelimit.NewLimiter(store, cfg.Max, cfg.Window, log)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(startedAt).Seconds(),
	})
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting MekaniKu API initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Kafka.Brokers))

		requiredTopics := []string{cfg.Kafka.Topics.Notifications, cfg.Kafka.Topics.BookingStatus}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
	}

	broker := sse.NewNotificationBroker()
	notifier, relay := setupNotifications(ctx, cfg, broker, producer, log)
	if relay != nil {
		defer relay.Close()
	}

	dispatcher := dispatch.New(dispatch.Options{
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
		Timeout:   cfg.Dispatch.Timeout,
	}, log)
	defer dispatcher.Close()

	chatService := chat.NewChatService(chat.NewRedisStore(redisClient), cfg.Chat.TypingTTL, log)

	// --- Auth ---
	authStore := &auth_db.DB{Bun: bunDB}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	revocations := auth.NewRedisRevocationStore(redisClient)
	authService := auth.NewAuthService(authStore, tokens, revocations, cfg.Auth.BcryptCost, log)
	authenticator := &auth.Authenticator{Tokens: tokens, Revocations: revocations, Logger: log}
	if cfg.OIDC.Enabled() {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err != nil {
			log.Warn("AUTH", fmt.Sprintf("OIDC provider unavailable, continuing with local tokens only: %v", err))
		} else {
			authenticator.OIDC = verifier
			log.Info("AUTH", fmt.Sprintf("OIDC verification enabled for %s", cfg.OIDC.Issuer))
		}
	}

	// --- Services ---
	bookingService := booking.NewBookingService(&booking_db.DB{Bun: bunDB}, chatService, notifier, dispatcher, log)
	if producer != nil {
		bookingService.WithEvents(producer, cfg.Kafka.Topics.BookingStatus)
	}

	paymentService := payment.NewPaymentService(
		&payment_db.DB{Bun: bunDB},
		setupGateway(cfg.Payment, log),
		cfg.Payment.Currency,
		chatService,
		notifier,
		dispatcher,
		log,
	)

	codec, err := report.NewCodec(cfg.Reports.QRSecret)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Report codec: %v", err))
	}
	reportFiles, err := report.NewFileStore(cfg.Reports.Dir, cfg.Reports.BaseURL)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Report storage: %v", err))
	}
	reportService := report.NewReportService(&report_db.DB{Bun: bunDB}, codec, reportFiles, log)
	reportService.VerifyHost = cfg.Reports.VerifyHost
	reportService.Currency = cfg.Payment.Currency

	workshopService := workshop.NewWorkshopService(&workshop_db.DB{Bun: bunDB}, log)
	vehicleService := vehicle.NewVehicleService(&vehicle_db.DB{Bun: bunDB}, log)
	consultationService := consultation.NewConsultationService(&consultation_db.DB{Bun: bunDB}, chatService, notifier, dispatcher, log)
	servicingService := servicing.NewServicingService(&servicing_db.DB{Bun: bunDB}, log)
	notificationService := notification.NewNotificationService(&notification_db.DB{Bun: bunDB}, log)
	reviewService := review.NewService(bunDB, log)
	analyticsService := analytics.NewService(bunDB)

	// --- Handlers ---
	authHandler := auth_api.NewHandler(authService, log)
	workshopHandler := workshop_api.NewHandler(workshopService, authStore, log)
	analyticsHandler := analytics_api.NewHandler(analyticsService, authStore, log)
	bookingHandler := booking_api.NewHandler(bookingService, log)
	paymentHandler := payment_api.NewHandler(paymentService, log)
	reviewHandler := review_api.NewHandler(reviewService, log)
	servicingHandler := servicing_api.NewHandler(servicingService, log)
	reportHandler := report_api.NewHandler(reportService, log)
	vehicleHandler := vehicle_api.NewHandler(vehicleService, log)
	consultationHandler := consultation_api.NewHandler(consultationService, log)
	chatHandler := chat_api.NewHandler(chatService, log)
	notificationHandler := notification_api.NewHandler(notificationService, broker, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.Server.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(log.Middleware)

	r.Get("/health", HealthHandler)
	r.Handle(cfg.Reports.BaseURL+"/*", http.StripPrefix(cfg.Reports.BaseURL, http.FileServer(http.Dir(cfg.Reports.Dir))))
	log.Info("ROUTER", fmt.Sprintf("Report files served from %s at %s", cfg.Reports.Dir, cfg.Reports.BaseURL))

	limiter := setupRateLimiter(ctx, cfg.RateLimit, redisClient, log)

	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/refresh", authHandler.Refresh)
			workshopHandler.RegisterPublicRoutes(r)
		})
		log.Info("ROUTER", "Public auth and workshop routes registered under /api")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(authenticator.Middleware())
			r.Use(limiter.Middleware)
			log.Info("AUTH", "JWT middleware applied to protected API routes")

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/logout", authHandler.Logout)

			workshopHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
			bookingHandler.RegisterRoutes(r)
			paymentHandler.RegisterRoutes(r)
			reviewHandler.RegisterRoutes(r)
			servicingHandler.RegisterRoutes(r)
			reportHandler.RegisterRoutes(r)
			vehicleHandler.RegisterRoutes(r)
			consultationHandler.RegisterRoutes(r)
			chatHandler.RegisterRoutes(r)
			notificationHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Protected routes registered under /api")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	streamsDone := make(chan struct{})
	notificationHandler.Done = streamsDone
	server.RegisterOnShutdown(func() { close(streamsDone) })

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 MekaniKu API running on %s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Drain requests before background workers stop.
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ MekaniKu API shutdown complete")
	}
	cancelBackground()
}
