package handlers

import (
	"net/http"

	"github.com/SscSPs/credit_ledger/cmd/docs"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/middleware"
	"github.com/SscSPs/credit_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// v1Middleware runs after authentication on every /v1 route.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	v1Middleware ...gin.HandlerFunc,
) {

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Provider notifications authenticate with the shared secret, not a user token
	registerWebhookRoutes(r, cfg.WebhookSecret, services.Notification)

	setupAPIV1Routes(r, cfg, services, v1Middleware)

	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /v1 group and delegates to specific route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	extra []gin.HandlerFunc,
) {
	chain := append([]gin.HandlerFunc{middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer)}, extra...)
	chain = append(chain, ensureAccount(services.Account))
	v1 := r.Group("/v1", chain...)

	registerAccountRoutes(v1, services.Account, services.Lock)
	registerCreditsRoutes(v1, services.Account, services.Pricing)
	registerGenerationRoutes(v1, services.Generation)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
