package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kriscao123/freshfood-backend/common/errors"
	"github.com/kriscao123/freshfood-backend/common/logger"
	"github.com/kriscao123/freshfood-backend/config"
	"github.com/kriscao123/freshfood-backend/controllers"
	"github.com/kriscao123/freshfood-backend/database"
	"github.com/kriscao123/freshfood-backend/kafka"
	"github.com/kriscao123/freshfood-backend/repository"
	"github.com/kriscao123/freshfood-backend/routes"
	"github.com/kriscao123/freshfood-backend/sender"
	"github.com/kriscao123/freshfood-backend/services"
)

func main() {

	// Load environment configuration
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	logger.Initialize(cfg.Env)
	defer func() { _ = zap.L().Sync() }()

	// Initialize MongoDB
	mongoClient, db, err := database.Connect(cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		zap.L().Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = database.Close(mongoClient) }()

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelIndexes()
	if err := repository.EnsureCartIndexes(indexCtx, db); err != nil {
		zap.L().Fatal("Failed to ensure cart indexes", zap.Error(err))
	}
	if err := repository.EnsureOrderIndexes(indexCtx, db); err != nil {
		zap.L().Fatal("Failed to ensure order indexes", zap.Error(err))
	}
	if err := repository.EnsureOTPIndexes(indexCtx, db); err != nil {
		zap.L().Fatal("Failed to ensure otp indexes", zap.Error(err))
	}

	// Initialize Redis client
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	// Kafka producer is optional; without brokers the services just skip
	// event publishing.
	var producer kafka.ProducerAPI
	if cfg.KafkaBrokers != "" {
		p := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		defer p.Close()
		producer = p
	}

	// Outbound transports fall back to a logging noop when unconfigured.
	var emails sender.EmailSender = sender.NoopSender{}
	if smtp, err := sender.NewSMTPSenderFromEnv(); err == nil {
		emails = smtp
	} else {
		zap.L().Warn("SMTP not configured", zap.Error(err))
	}
	var sms sender.SMSSender = sender.NoopSender{}
	if twilio, err := sender.NewTwilioSenderFromEnv(); err == nil {
		sms = twilio
	} else {
		zap.L().Warn("Twilio not configured", zap.Error(err))
	}

	// Repositories
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	userRepo := repository.NewUserRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)

	// Services
	tokenSvc := services.NewTokenService(cfg.JWTSecret)
	authSvc := services.NewAuthService(otpRepo, userRepo, tokenSvc, emails, sms, cfg.OTPExpiry)
	productSvc := services.NewProductService(productRepo, redisClient, cfg.CacheTTL)
	cartSvc := services.NewCartService(cartRepo, productRepo, interactionRepo)
	orderSvc := services.NewOrderService(orderRepo, cartSvc, interactionRepo, producer)
	paymentSvc := services.NewPaymentService(orderRepo, userRepo, producer, emails,
		cfg.SepayAccount, cfg.SepayBank, cfg.SepayPrefix)

	// Initialize Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(), errors.ErrorMiddleware())

	routes.Register(router, routes.Controllers{
		Auth:     controllers.NewAuthController(authSvc),
		Products: controllers.NewProductController(productSvc),
		Cart:     controllers.NewCartController(cartSvc, orderSvc),
		Orders:   controllers.NewOrderController(orderSvc),
		Payments: controllers.NewPaymentController(paymentSvc, orderSvc, cfg.SepayWebhookKey),
	}, tokenSvc)

	// Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zap.L().Info("FreshFood backend is running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zap.L().Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Fatal("Shutdown error", zap.Error(err))
	}
	zap.L().Info("Server shutdown complete")
}
