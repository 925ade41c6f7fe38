package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vantrack/fleetsync-go/internal/handler"
	"github.com/vantrack/fleetsync-go/internal/middleware"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Sync      *handler.SyncHandler
	Reconcile *handler.ReconcileHandler
	Trips     *handler.TripHandler
	Devices   *handler.DeviceHandler
}

// SetupRouter 设置路由
func SetupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Fleetsync API is running",
		})
	})

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(300, time.Minute))
	{
		// 同步触发接口
		api.POST("/sync", h.Sync.SyncAll)
		api.POST("/sync/:deviceId", h.Sync.SyncDevice)
		api.POST("/reconcile", h.Reconcile.Reconcile)
		api.GET("/reports/:runId", h.Reconcile.GetReport)

		// 行程接口
		api.GET("/trips", h.Trips.GetTrips)
		api.GET("/trips/:id", h.Trips.GetTripByID)

		// 设备接口
		devices := api.Group("/devices/:deviceId")
		{
			devices.GET("/readings", h.Devices.GetReadings)
			devices.GET("/events", h.Devices.GetEvents)
			devices.GET("/checkpoint", h.Sync.GetCheckpoint)
		}
	}

	return r
}
