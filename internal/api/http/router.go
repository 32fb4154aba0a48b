package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/labops/fleetprov/internal/api/http/handler"
	"github.com/labops/fleetprov/internal/api/http/middleware"
	"github.com/labops/fleetprov/internal/audit"
	"github.com/labops/fleetprov/internal/metrics"
)

type Services struct {
	Accounts    handler.AccountService
	Recorder    audit.Recorder
	AdminAPIKey string
	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	if srvs.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(metrics.Handler(srvs.Gatherer)))
	}

	api := engine.Group("/api/v1")

	accountHandler := handler.NewAccountHandler(srvs.Accounts)
	create := api.Group("/accounts")
	if srvs.RateLimiter != nil {
		create.Use(srvs.RateLimiter.Middleware())
	}
	create.POST("", accountHandler.Create)

	if srvs.Recorder != nil {
		recordsHandler := handler.NewRecordsHandler(srvs.Recorder)
		admin := api.Group("/records", middleware.APIKeyAuth(srvs.AdminAPIKey))
		admin.GET("", recordsHandler.List)
	}
}
