package api

import (
	"github.com/Conceptual-Machines/workplan-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/workplan-api/internal/api/middleware"
	"github.com/Conceptual-Machines/workplan-api/internal/config"
	"github.com/gin-gonic/gin"
)

// Services are the backends the HTTP handlers call
type Services struct {
	WorkPlans  handlers.WorkPlanFiller
	References handlers.ReferenceReader
	Usage      handlers.UsageReporter
	APIMetrics apimiddleware.APIRequestRecorder // optional
}

func SetupRouter(svc Services, cfg *config.Config, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(svc.APIMetrics))

	router.Use(apimiddleware.CORS(apimiddleware.ParseOrigins(cfg.CORSOrigins)))

	// Health check
	healthHandler := handlers.NewHealthHandler(version)
	router.GET("/health", healthHandler.HealthCheck)

	api := router.Group("/api")
	{
		metricsHandler := handlers.NewMetricsHandler(version, handlers.GenerationInfo{
			Mode:         cfg.AIServiceMode,
			Model:        cfg.LLMModel,
			Timeout:      cfg.LLMTimeout.String(),
			MaxTimeout:   cfg.LLMMaxTimeout.String(),
			BulkMaxItems: cfg.BulkMaxItems,
		})
		api.GET("/metrics", metricsHandler.GetMetrics)

		// Work plan generation
		workPlanHandler := handlers.NewWorkPlanHandler(svc.WorkPlans, cfg.BulkMaxItems)
		api.POST("/fill-work-plan", workPlanHandler.FillWorkPlan)
		api.POST("/fill-work-plan/bulk", workPlanHandler.FillWorkPlanBulk)

		// Reference data
		referenceHandler := handlers.NewReferenceHandler(svc.References)
		api.GET("/curriculum-refs", referenceHandler.ListCurriculumRefs)
		api.GET("/curriculum-refs/:code", referenceHandler.GetCurriculumRef)
		api.GET("/modules", referenceHandler.ListModules)

		usageHandler := handlers.NewUsageHandler(svc.Usage)
		api.GET("/usage/stats", usageHandler.GetStats)
	}

	return router
}
