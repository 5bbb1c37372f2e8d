package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/service"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

type PaymentHandler struct {
	gateway PaymentGateway
}

func NewPaymentHandler(gateway PaymentGateway) *PaymentHandler {
	return &PaymentHandler{gateway: gateway}
}

// ProcessPayment starts checkout for an order. The result, success or not,
// is meant for the checkout page and is always returned with 200.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	reference := c.Param("reference")

	result := h.gateway.ProcessPayment(c.Request.Context(), reference)
	if result.Result != service.ResultSuccess {
		telemetry.Logger.Warn("Checkout failed",
			zap.String("reference", reference),
			zap.String("request_id", c.GetString("request_id")),
		)
	}

	c.JSON(http.StatusOK, result)
}
