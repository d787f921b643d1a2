package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	applogger "checkout-service/common/logger"
	"checkout-service/config"
	"checkout-service/controllers"
	"checkout-service/database"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/sender"
	"checkout-service/services"
	"checkout-service/templates"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "checkout-service"

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal("[CheckoutService] ❌ Failed to load config: ", err)
	}

	// AWS is only needed for CloudWatch and order events.
	var awsCfg sdkaws.Config
	awsReady := false
	if cfg.CloudWatchEnabled || cfg.OrderEventsTopicARN != "" {
		if awsCfg, err = awspkg.LoadAWSConfig(ctx); err != nil {
			log.Fatal("[CheckoutService] ❌ Failed to load AWS config: ", err)
		}
		awsReady = true
	}

	var logSink io.Writer
	var sinkErr error
	if cfg.CloudWatchEnabled && cfg.CloudWatchLogGroup != "" {
		cw, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			sinkErr = err
		} else {
			logSink = cw
		}
	}

	logger, err := applogger.New(cfg.Env, logSink)
	if err != nil {
		log.Fatal("[CheckoutService] ❌ Failed to initialize logger: ", err)
	}
	defer func() { _ = logger.Sync() }()
	if sinkErr != nil {
		logger.Warn("CloudWatch Logs sink disabled (non-fatal)", zap.Error(sinkErr))
	}

	var metrics *awspkg.MetricsClient
	if awsReady {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)
	}

	// Processed-session store
	var processed repository.ProcessedSessionRepository
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
		processed = repository.NewRedisProcessedSessionRepository(redisClient, cfg.ProcessedSessionTTL)
		logger.Info("Webhook de-duplication backed by Redis")
	} else {
		processed = repository.NewMemoryProcessedSessionRepository(cfg.ProcessedSessionTTL)
		logger.Warn("REDIS_URL not set, webhook de-duplication is per-process only")
	}

	emailSender, err := sender.New(sender.Options{
		Provider:       cfg.MailProvider,
		From:           sender.From{Name: cfg.EmailFromName, Email: cfg.EmailUser},
		SendGridAPIKey: cfg.SendGridAPIKey,
		SendGridHost:   cfg.SendGridHost,
		SMTPHost:       cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
		SMTPUser:       cfg.SMTPUser,
		SMTPPass:       cfg.SMTPPass,
		Timeout:        cfg.MailTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to init email sender", zap.Error(err))
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		logger.Fatal("Failed to parse email templates", zap.Error(err))
	}

	var publisher awspkg.SNSPublisher
	if cfg.OrderEventsTopicARN != "" {
		publisher = awspkg.NewSNSClient(awsCfg)
	}

	// Dependency injection
	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)
	notificationService := services.NewNotificationService(emailSender, renderer, cfg.StoreName, cfg.AdminEmail, metrics, logger)
	checkoutService := services.NewCheckoutService(stripeSvc, services.CheckoutSettings{
		Currency:    cfg.Currency,
		StoreName:   cfg.StoreName,
		FrontendURL: cfg.FrontendURL,
	}, metrics, logger)
	webhookService := services.NewWebhookService(services.WebhookDeps{
		Provider:      stripeSvc,
		Notifications: notificationService,
		Processed:     processed,
		Publisher:     publisher,
		TopicArn:      cfg.OrderEventsTopicARN,
		Metrics:       metrics,
		Logger:        logger,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	routes.RegisterRoutes(r, routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkoutService, logger),
		Webhook:  controllers.NewWebhookController(webhookService, logger),
		System:   controllers.NewSystemController(notificationService, cfg.StoreName, logger),
	}, routes.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        metrics,
		ServiceName:    serviceName,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	go func() {
		logger.Info("Checkout service started",
			zap.String("port", cfg.Port),
			zap.String("mail_provider", cfg.MailProvider),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	logger.Info("Checkout service stopped")
}
