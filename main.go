package main

import (
	"context"
	"log"

	api "mailbrief-backend/cmd/api"
	accountDelivery "mailbrief-backend/internal/account/delivery"
	accountdomain "mailbrief-backend/internal/account/domain"
	accountRepo "mailbrief-backend/internal/account/repository"
	accountUsecase "mailbrief-backend/internal/account/usecase"
	authDelivery "mailbrief-backend/internal/auth/delivery"
	authdomain "mailbrief-backend/internal/auth/domain"
	authRepo "mailbrief-backend/internal/auth/repository"
	authUsecase "mailbrief-backend/internal/auth/usecase"
	digestDelivery "mailbrief-backend/internal/digest/delivery"
	digestdomain "mailbrief-backend/internal/digest/domain"
	digestRepo "mailbrief-backend/internal/digest/repository"
	digestUsecase "mailbrief-backend/internal/digest/usecase"
	"mailbrief-backend/internal/notification"
	"mailbrief-backend/pkg/ai"
	"mailbrief-backend/pkg/config"
	"mailbrief-backend/pkg/database"
	"mailbrief-backend/pkg/fcm"
	"mailbrief-backend/pkg/gmail"
	"mailbrief-backend/pkg/imap"
	"mailbrief-backend/pkg/whatsapp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.FCMToken{},
		&accountdomain.Account{},
		&digestdomain.Digest{},
		&digestdomain.ProcessedMessage{},
		&digestdomain.NotificationRecord{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepository := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	accountRepository := accountRepo.NewAccountRepository(db)
	digestRepository := digestRepo.NewDigestRepository(db)
	processedRepo := digestRepo.NewProcessedMessageRepository(db)
	recordRepo := digestRepo.NewNotificationRecordRepository(db)

	// Initialize message providers
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, gmail.FetchOptions{
		MaxResults:  cfg.FetchMaxResults,
		MaxPages:    cfg.FetchMaxPages,
		BatchSize:   cfg.FetchBatchSize,
		Concurrency: cfg.FetchConcurrent,
	})
	imapService := imap.NewService(cfg.FetchMaxResults)

	// Credential manager refreshes expiring OAuth tokens before any fetch
	credentialManager := accountUsecase.NewCredentialManager(accountRepository, gmailService, gmail.RevokedGrant)

	// Initialize AI digest generator
	generator, err := ai.NewDigestGenerator(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI provider:", err)
	}
	log.Printf("AI digest generator initialized with provider: %s", cfg.AIProvider)

	summarizer := digestUsecase.NewSummarizer(generator)
	ledger := digestUsecase.NewLedger(processedRepo)

	providers := map[string]digestdomain.MessageProvider{
		accountdomain.ProviderGoogle: gmailService,
		accountdomain.ProviderIMAP:   imapService,
	}

	digestUsecaseInstance := digestUsecase.NewDigestUsecase(
		accountRepository,
		digestRepository,
		credentialManager,
		ledger,
		summarizer,
		providers,
	)

	// Initialize FCM client (optional, push channel disabled without it)
	var pushSender notification.PushSender
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("Warning: Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			pushSender = fcmClient
		}
	}

	// Initialize WhatsApp sender (optional)
	var textSender notification.TextSender
	whatsappService := whatsapp.NewService(cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
	if whatsappService.Configured() {
		textSender = whatsappService
	}

	dispatcher := notification.NewDispatcher(
		userRepository,
		accountRepository,
		fcmTokenRepo,
		recordRepo,
		gmailService,
		textSender,
		pushSender,
	)

	// Daily digest scheduler
	if cfg.SchedulerEnabled {
		scheduler := digestUsecase.NewScheduler(cfg.SchedulerInterval, accountRepository, digestUsecaseInstance, dispatcher)
		scheduler.Start(context.Background())
	}

	// Initialize use cases and handlers (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepository, cfg)
	authHandler := authDelivery.NewAuthHandler(authUsecaseInstance, userRepository, fcmTokenRepo)
	accountHandler := accountDelivery.NewAccountHandler(accountRepository, gmailService, cfg)
	digestHandler := digestDelivery.NewDigestHandler(digestUsecaseInstance, digestRepository, dispatcher)

	handler := api.NewHandler(authUsecaseInstance, authHandler, accountHandler, digestHandler)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
