package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/narsimha-film/abtest-backend/internal/db"
	"github.com/narsimha-film/abtest-backend/internal/handlers"
	"github.com/narsimha-film/abtest-backend/internal/identity"
	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/middleware"
	"github.com/narsimha-film/abtest-backend/internal/observability"
	"github.com/narsimha-film/abtest-backend/internal/repos"
	"github.com/narsimha-film/abtest-backend/internal/server"
	"github.com/narsimha-film/abtest-backend/internal/services"
	"github.com/narsimha-film/abtest-backend/internal/utils"
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
	appEnv := utils.GetEnv("APP_ENV", "development", log)
	production := appEnv == "production"
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "abtest-backend",
		Environment: appEnv,
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	experimentRepo := repos.NewExperimentRepo(thePG, log)
	variantRepo := repos.NewVariantRepo(thePG, log)
	assignmentRepo := repos.NewAssignmentRepo(thePG, log)
	eventRepo := repos.NewEventRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	hasher := identity.NewHasher(log)
	experimentService := services.NewExperimentService(thePG, log, hasher, experimentRepo, variantRepo, assignmentRepo, eventRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	experimentHandler := handlers.NewExperimentHandler(log, experimentService)
	adminHandler := handlers.NewAdminHandler(log, experimentService)

	// Middleware
	log.Info("Setting up middleware from main...")
	sessionMiddleware := middleware.NewSessionMiddleware(log, production)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:               log,
		AllowOrigins:      allowOrigins,
		SessionMiddleware: sessionMiddleware,
		ExperimentHandler: experimentHandler,
		AdminHandler:      adminHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
