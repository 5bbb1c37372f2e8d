package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/handlers"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

// NewRouter wires the public checkout and notification routes and the
// admin-only order and settings routes, which require adminToken.
func NewRouter(gateway handlers.PaymentGateway, notificationPath, adminToken string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "sheepy-gateway"})
	})

	// Sheepy notifications
	webhookHandler := handlers.NewWebhookHandler(gateway)
	r.POST(notificationPath, webhookHandler.HandleNotification)

	// Checkout and orders
	paymentHandler := handlers.NewPaymentHandler(gateway)
	r.POST("/checkout/:reference", paymentHandler.ProcessPayment)

	admin := AdminAuth(adminToken)

	orderHandler := handlers.NewOrderStateHandler(gateway)
	r.GET("/orders/:reference", admin, orderHandler.GetOrderState)

	// Gateway settings
	settingsHandler := handlers.NewSettingsHandler(gateway)
	settings := r.Group("/settings", admin)
	settings.GET("", settingsHandler.GetSettings)
	settings.DELETE("", settingsHandler.DeleteSettings)
	settings.GET("/order-states", settingsHandler.GetOrderStates)
	settings.PUT("/order-states", settingsHandler.UpdateOrderStates)

	return r
}
