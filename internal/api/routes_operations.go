package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/lifeadmin/internal/handlers"
	"github.com/charlesng35/lifeadmin/internal/middleware"
)

const (
	triggerRateLimit  = 6
	triggerRateWindow = time.Minute
)

func registerOperationsRoutes(api *gin.RouterGroup, handler *handlers.OperationsHandler, rateStore middleware.RateStore) {
	group := api.Group("/ops/reminders", middleware.RequireAdmin())
	{
		group.POST("/trigger", middleware.RateLimit(rateStore, triggerRateLimit, triggerRateWindow), handler.TriggerReminders)
		group.GET("/status", handler.Status)
	}
}
