// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kurye/internal/http/handlers"
	"kurye/internal/http/middleware"
	"kurye/internal/modules/area"
	"kurye/internal/modules/location"
	"kurye/internal/modules/order"
	"kurye/internal/realtime"
)

type RouterDeps struct {
	Order    *order.Service
	Location *location.Service
	Areas    *area.Service
	Hub      *realtime.Hub
	Gateway  *realtime.Gateway
	Log      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.Identity())

	orderHandler := handlers.NewOrderHandler(deps.Order)
	api := r.Group("/api")
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.PUT("/orders/:id", orderHandler.Edit)
	api.DELETE("/orders/:id", orderHandler.Delete)
	api.POST("/orders/:id/accept", orderHandler.Accept)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)
	api.POST("/orders/:id/deliver", orderHandler.Deliver)
	api.POST("/orders/:id/approve", orderHandler.Approve)

	courierHandler := handlers.NewCourierHandler(deps.Order)
	api.GET("/couriers/feed", courierHandler.Feed)
	api.GET("/couriers/:id/orders", courierHandler.Active)
	api.GET("/couriers/:id/totals", courierHandler.Totals)

	restaurantHandler := handlers.NewRestaurantHandler(deps.Order, deps.Areas)
	api.GET("/restaurants/:id/orders", restaurantHandler.Orders)
	api.GET("/restaurants/:id/orders/pending", restaurantHandler.Pending)
	api.GET("/restaurants/:id/totals", restaurantHandler.Totals)
	api.GET("/restaurants/:id/areas", restaurantHandler.Areas)
	api.POST("/restaurants/:id/areas", restaurantHandler.CreateArea)
	api.DELETE("/restaurants/:id/areas/:areaId", restaurantHandler.DeleteArea)

	locationHandler := handlers.NewLocationHandler(deps.Location)
	api.PUT("/location", locationHandler.Update)
	api.GET("/orders/:id/location", locationHandler.Latest)

	adminHandler := handlers.NewAdminHandler(deps.Hub)
	admin := api.Group("/admin")
	admin.POST("/notify", adminHandler.Notify)
	admin.POST("/refresh", adminHandler.RefreshFeeds)
	admin.POST("/logout", adminHandler.ForceLogout)

	r.GET("/ws", func(c *gin.Context) {
		deps.Gateway.Serve(c.Writer, c.Request)
	})

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
