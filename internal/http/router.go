// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"epsilon/internal/clock"
	"epsilon/internal/http/handlers"
	"epsilon/internal/http/middleware"
	"epsilon/internal/modules/order"
	"epsilon/internal/validate"
)

type RouterDeps struct {
	Orders      *order.Service
	Credentials middleware.CredentialStore
	Validator   *validate.Validator
	Clock       clock.Clock
	Log         *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	auth := middleware.Auth(deps.Credentials, deps.Clock)

	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Validator)
	orders := engine.Group("/orders", auth)
	orders.POST("", orderHandler.Create)
	orders.GET("", orderHandler.List)
	orders.GET("/:orderId", orderHandler.Get)
	orders.PUT("/:orderId", orderHandler.Change)
	orders.GET("/:orderId/location", orderHandler.GetLocation)
	orders.PUT("/:orderId/location", orderHandler.UpdateLocation)

	bidHandler := handlers.NewBidHandler(deps.Orders, deps.Validator)
	bids := engine.Group("/bids", auth)
	bids.POST("/:orderId", bidHandler.Place)
	bids.GET("/:orderId", bidHandler.ListForOrder)
	bids.GET("/bid/:bidId", bidHandler.Get)

	return engine
}
