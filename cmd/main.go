package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/coachline/registration-backend/internal/clients/openai"
	redisclient "github.com/coachline/registration-backend/internal/clients/redis"
	"github.com/coachline/registration-backend/internal/data/db"
	"github.com/coachline/registration-backend/internal/data/repos"
	"github.com/coachline/registration-backend/internal/handlers"
	"github.com/coachline/registration-backend/internal/observability"
	"github.com/coachline/registration-backend/internal/pkg/envutil"
	"github.com/coachline/registration-backend/internal/pkg/logger"
	"github.com/coachline/registration-backend/internal/server"
	"github.com/coachline/registration-backend/internal/services"
)

func main() {
	// Logger
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "registration-backend",
		Environment: envutil.String("DEPLOY_ENV", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
	})
	if shutdownOtel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOtel(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	sessionRepo := repos.NewSessionRepo(thePG, log)
	orgRepo := repos.NewOrganizationRepo(thePG, log)
	conversationRepo := repos.NewConversationRepo(thePG, log)

	// Clients
	log.Info("Setting up clients...")
	var inventoryCache redisclient.InventoryCache
	if envutil.String("REDIS_ADDR", "") != "" {
		cache, err := redisclient.NewInventoryCache(log)
		if err != nil {
			log.Warn("Could not init inventory cache, running without it", "error", err)
		} else {
			inventoryCache = cache
			defer cache.Close()
		}
	}
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services...")
	inventoryService := services.NewInventoryService(log, sessionRepo, inventoryCache)
	extractor := services.NewOpenAIExtractor(openaiClient)
	conversationService := services.NewConversationService(
		log,
		conversationRepo,
		orgRepo,
		sessionRepo,
		inventoryService,
		extractor,
		envutil.Duration("EXTRACT_TIMEOUT", 20*time.Second),
	)

	// Handlers
	chatHandler := handlers.NewChatHandler(log, conversationService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ChatHandler: chatHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
