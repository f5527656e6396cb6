package handlers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/SscSPs/fiscal_ledger/cmd/docs"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fiscal_ledger/internal/core/ports/services"
	"github.com/SscSPs/fiscal_ledger/internal/middleware"
	"github.com/SscSPs/fiscal_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {
	RegisterValidators()

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	setupAPIV1Routes(r, cfg, services)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	service *portssvc.ServiceContainer,
) {
	// Apply AuthMiddleware to the entire v1 group
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))

	RegisterFiscalRoutes(v1, service.Fiscal)
	RegisterAccountRoutes(v1, service.Account, service.Ledger)
	RegisterJournalRoutes(v1, service.Ledger)
	RegisterReportingRoutes(v1, service.Ledger)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

var registerValidatorsOnce sync.Once

// RegisterValidators adds the custom binding tags used by the request DTOs to gin's
// validator. It is safe to call more than once and panics if a tag cannot be registered.
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := registerDocumentTypeValidation(v); err != nil {
				panic(fmt.Sprintf("failed to register fiscaldoctype validation: %v", err))
			}
		}
	})
}

func registerDocumentTypeValidation(v *validator.Validate) error {
	return v.RegisterValidation("fiscaldoctype", func(fl validator.FieldLevel) bool {
		return domain.DocumentType(fl.Field().String()).IsValid()
	})
}
