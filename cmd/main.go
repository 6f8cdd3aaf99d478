package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/db"
	"github.com/vendalab/impact-backend/internal/handlers"
	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/middleware"
	"github.com/vendalab/impact-backend/internal/observability"
	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/realtime/bus"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/server"
	"github.com/vendalab/impact-backend/internal/services"
	"github.com/vendalab/impact-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	eventConfigPath := utils.GetEnv("EVENT_CONFIG_PATH", "event.yaml", log)

	// Tracing
	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "impact-backend",
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// Event config
	eventCfg, err := config.Load(eventConfigPath, log)
	if err != nil {
		log.Error("Event config load failed", "error", err)
		os.Exit(1)
	}

	// Database
	dbService, err := db.NewDatabaseService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	theDB := dbService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(theDB, log)
	userTokenRepo := repos.NewUserTokenRepo(theDB, log)
	rewardRepo := repos.NewRewardEntryRepo(theDB, log)
	progressRepo := repos.NewUserProgressRepo(theDB, log)
	phaseRepo := repos.NewEventPhaseRepo(theDB, log)
	diagnosticRepo := repos.NewDiagnosticRepo(theDB, log)
	contentRepo := repos.NewGeneratedContentRepo(theDB, log)
	notificationRepo := repos.NewNotificationRepo(theDB, log)
	surveyRepo := repos.NewSurveyResponseRepo(theDB, log)
	interactionRepo := repos.NewInteractionRepo(theDB, log)

	// The singleton phase row must exist before the first read.
	if err := phaseRepo.EnsureSeed(ctx, nil); err != nil {
		log.Error("Failed to seed event phase state", "error", err)
		os.Exit(1)
	}

	// SSE hub, with an optional Redis bus for multi-instance fan-out.
	log.Info("Setting up SSE hub now...")
	sseHub := realtime.NewSSEHub(log)
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	if redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); redisAddr != "" {
		sseBus, busErr := bus.NewRedisBus(log, redisAddr, os.Getenv("REDIS_CHANNEL"))
		if busErr != nil {
			log.Error("Redis SSE bus init failed", "error", busErr)
			os.Exit(1)
		}
		defer sseBus.Close()
		if fwdErr := sseBus.StartForwarder(ctx, sseHub.Broadcast); fwdErr != nil {
			log.Error("Redis SSE forwarder failed", "error", fwdErr)
			os.Exit(1)
		}
		emitter = &services.RedisEmitter{Bus: sseBus}
	}

	// Services
	log.Info("Setting up Services from main...")
	aiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(theDB, log, userRepo, userTokenRepo, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	rewardService := services.NewRewardService(theDB, log, eventCfg, rewardRepo, progressRepo, emitter)
	phaseService := services.NewPhaseService(theDB, log, phaseRepo, emitter)
	diagnosticService := services.NewDiagnosticService(theDB, log, eventCfg, diagnosticRepo, userRepo, emitter)
	surveyService := services.NewSurveyService(theDB, log, eventCfg, surveyRepo, interactionRepo)
	contentService := services.NewContentService(theDB, log, eventCfg, contentRepo, diagnosticRepo, surveyRepo, interactionRepo, aiClient, emitter)
	notificationService := services.NewNotificationService(theDB, log, eventCfg, notificationRepo, emitter)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userRepo, rewardService)
	rewardHandler := handlers.NewRewardHandler(rewardService)
	phaseHandler := handlers.NewPhaseHandler(phaseService)
	diagnosticHandler := handlers.NewDiagnosticHandler(diagnosticService)
	contentHandler := handlers.NewContentHandler(contentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	surveyHandler := handlers.NewSurveyHandler(surveyService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	var allowOrigins []string
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS")); raw != "" {
		allowOrigins = strings.Split(raw, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		UserHandler:         userHandler,
		RewardHandler:       rewardHandler,
		PhaseHandler:        phaseHandler,
		DiagnosticHandler:   diagnosticHandler,
		ContentHandler:      contentHandler,
		NotificationHandler: notificationHandler,
		SurveyHandler:       surveyHandler,
		SSEHandler:          sseHandler,
		AllowOrigins:        allowOrigins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
