package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/client"
	"github.com/aura-securities/website-api/internal/config"
	"github.com/aura-securities/website-api/internal/handlers"
	"github.com/aura-securities/website-api/internal/middleware"
	"github.com/aura-securities/website-api/internal/repository"
	"github.com/aura-securities/website-api/internal/service"
	"github.com/aura-securities/website-api/internal/sms"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	redisClient := initRedis(cfg, logger)

	// Initialize repositories
	otpRepo := repository.NewOTPRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	contactRepo := repository.NewContactRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	submissionRepo := repository.NewSubmissionRepository(dynamoClient, cfg.DynamoDB.TableName, logger)

	// External collaborators
	var sender sms.Sender
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		sender = sms.NewTwilioSender(&cfg.Twilio, logger)
	} else {
		logger.Warn("Twilio not configured, OTP codes will be logged instead of sent")
		sender = sms.NewLogSender(logger)
	}
	slackClient := client.NewSlackClient(cfg.Slack.WebhookURL)

	// Initialize services
	sessionService, err := service.NewSessionService(&cfg.Admin, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize session service")
	}

	otpService := service.NewOTPService(otpRepo, contactRepo, sender, slackClient, &cfg.OTP, logger)
	contactService := service.NewContactService(submissionRepo, slackClient, logger)

	otpHandlers := handlers.NewOTPHandlers(otpService, logger)
	contactHandlers := handlers.NewContactHandlers(contactService, logger)
	adminHandlers := handlers.NewAdminHandlers(contactRepo, submissionRepo, sessionService, cfg.Admin.APIKey, logger)

	adminAuth := middleware.NewAdminAuthMiddleware(cfg.Admin.APIKey, sessionService, logger)
	rateLimit := middleware.NewRateLimitMiddleware(redisClient, 5, time.Minute, logger)
	router := setupRouter(otpHandlers, contactHandlers, adminHandlers, adminAuth, rateLimit, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func initRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.Redis.Endpoint == "" {
		logger.Warn("Redis not configured, OTP rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("Redis client initialized")
	return client
}

func setupRouter(
	otpHandlers *handlers.OTPHandlers,
	contactHandlers *handlers.ContactHandlers,
	adminHandlers *handlers.AdminHandlers,
	adminAuth *middleware.AdminAuthMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	otp := api.PathPrefix("/otp").Subrouter()
	otp.Handle("/send", rateLimit.Limit(http.HandlerFunc(otpHandlers.SendOTP))).Methods("POST", "OPTIONS")
	otp.HandleFunc("/verify", otpHandlers.VerifyOTP).Methods("POST", "OPTIONS")

	api.HandleFunc("/contact", contactHandlers.SubmitContact).Methods("POST", "OPTIONS")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/login", adminHandlers.Login).Methods("POST", "OPTIONS")
	admin.HandleFunc("/session", adminHandlers.Session).Methods("GET", "OPTIONS")
	admin.Handle("/contacts", adminAuth.RequireAdmin(http.HandlerFunc(adminHandlers.ListContacts))).Methods("GET", "OPTIONS")
	admin.Handle("/submissions", adminAuth.RequireAdmin(http.HandlerFunc(adminHandlers.ListSubmissions))).Methods("GET", "OPTIONS")
	admin.Handle("/submissions", adminAuth.RequireAdmin(http.HandlerFunc(adminHandlers.UpdateSubmission))).Methods("PATCH", "OPTIONS")

	return router
}
