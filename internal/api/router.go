package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/lifeadmin/internal/app"
	iauth "github.com/charlesng35/lifeadmin/internal/auth"
	"github.com/charlesng35/lifeadmin/internal/handlers"
	"github.com/charlesng35/lifeadmin/internal/middleware"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
	"github.com/charlesng35/lifeadmin/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers the health, metrics,
// notification and operations routes.
func NewRouter(
	cfg *app.Config,
	jwt *iauth.JWTService,
	notifications *services.NotificationService,
	trigger handlers.ReminderTrigger,
	mon *monitoring.Module,
	rateStore middleware.RateStore,
) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(healthPaths...))
	r.Use(middleware.Metrics(metricsEndpoint(cfg)))

	registerHealthRoutes(r, cfg, mon)
	registerMetricsRoutes(r, cfg, mon)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	if notifications != nil {
		notificationHandler, err := handlers.NewNotificationHandler(notifications)
		if err != nil {
			return nil, err
		}
		registerNotificationRoutes(api, notificationHandler)
	}

	if trigger != nil {
		opsHandler, err := handlers.NewOperationsHandler(trigger, cfg)
		if err != nil {
			return nil, err
		}
		registerOperationsRoutes(api, opsHandler, rateStore)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerMetricsRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if !cfg.Monitoring.Prometheus.Enabled || mon == nil {
		return
	}
	r.GET(metricsEndpoint(cfg), gin.WrapH(mon.Handler()))
}

func metricsEndpoint(cfg *app.Config) string {
	if endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint); endpoint != "" {
		return endpoint
	}
	return "/metrics"
}
