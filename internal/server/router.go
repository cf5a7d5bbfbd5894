package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/narsimha-film/abtest-backend/internal/handlers"
	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/middleware"
)

type RouterConfig struct {
	Log               *logger.Logger
	AllowOrigins      []string
	SessionMiddleware *middleware.SessionMiddleware
	ExperimentHandler *handlers.ExperimentHandler
	AdminHandler      *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("abtest-backend"))
	router.Use(middleware.RequestLogger(cfg.Log))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{middleware.SessionHeaderName},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.SessionMiddleware.EnsureSession())
	{
		api.POST("/assign", cfg.ExperimentHandler.Assign)
		api.GET("/experiments/active", cfg.ExperimentHandler.ActiveExperiments)
		api.POST("/track", cfg.ExperimentHandler.Track)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/experiments", cfg.AdminHandler.CreateExperiment)
		admin.POST("/experiments/:id/start", cfg.AdminHandler.StartExperiment)
		admin.POST("/experiments/:id/pause", cfg.AdminHandler.PauseExperiment)
		admin.POST("/experiments/:id/stop", cfg.AdminHandler.StopExperiment)
		admin.GET("/experiments/:id/results", cfg.AdminHandler.ExperimentResults)
	}

	return router
}
