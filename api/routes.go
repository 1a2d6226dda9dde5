package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/sendgate/sendgate/api/handlers"
	"github.com/sendgate/sendgate/api/middleware"
	"github.com/sendgate/sendgate/internal/repository"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	// Health check endpoint (no custom context needed)
	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-SENDGATE-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version and custom context
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.TenantValidationMiddleware())
	api.Use(middleware.CustomContextMiddleware("sendgate"))
	api.Use(middleware.TracingMiddleware())
	{
		sends := api.Group("/sends")
		{
			sends.POST("", handlers.SubmitSend(s.AdmissionService))
		}

		batches := api.Group("/batches")
		{
			batches.POST("", handlers.CreateBatch(s.BatchService))
			batches.GET("/:id", handlers.GetBatchStatus(s.BatchService))
			batches.GET("/:id/emails", handlers.GetBatchEmails(s.BatchService))
		}

		api.GET("/quota", handlers.GetQuota(s.QuotaService))
	}
}
