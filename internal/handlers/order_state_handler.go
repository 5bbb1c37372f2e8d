package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

type OrderStateHandler struct {
	gateway PaymentGateway
}

func NewOrderStateHandler(gateway PaymentGateway) *OrderStateHandler {
	return &OrderStateHandler{gateway: gateway}
}

func (h *OrderStateHandler) GetOrderState(c *gin.Context) {
	reference := c.Param("reference")

	order, notes, err := h.gateway.Order(c.Request.Context(), reference)
	if err != nil {
		telemetry.Logger.Error("Error fetching order", zap.String("reference", reference), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order state"})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	noteTexts := make([]gin.H, 0, len(notes))
	for _, n := range notes {
		noteTexts = append(noteTexts, gin.H{"note": n.Note, "created_at": n.CreatedAt})
	}

	c.JSON(http.StatusOK, gin.H{
		"reference":      order.Reference,
		"state":          order.State,
		"previous_state": order.PreviousState,
		"total":          order.Total.String(),
		"currency":       order.Currency,
		"paid":           order.IsPaid(),
		"paid_at":        order.PaidAt,
		"notes":          noteTexts,
		"created_at":     order.CreatedAt,
		"updated_at":     order.UpdatedAt,
	})
}
