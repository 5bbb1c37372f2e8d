package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

type SettingsHandler struct {
	gateway PaymentGateway
}

func NewSettingsHandler(gateway PaymentGateway) *SettingsHandler {
	return &SettingsHandler{gateway: gateway}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.gateway.Options(c.Request.Context())
	if err != nil {
		telemetry.Logger.Error("Error loading gateway settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) GetOrderStates(c *gin.Context) {
	options, err := h.gateway.OrderStatusOptions(c.Request.Context())
	if err != nil {
		telemetry.Logger.Error("Error loading order state mapping", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order states"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":     options,
		"order_states": models.KnownOrderStates(),
	})
}

// UpdateOrderStates takes a JSON object of invoice status to order state.
// Unknown statuses or states are ignored.
func (h *SettingsHandler) UpdateOrderStates(c *gin.Context) {
	var requested map[string]string
	if err := c.ShouldBindJSON(&requested); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	overrides, err := h.gateway.UpdateOrderStates(c.Request.Context(), requested)
	if err != nil {
		telemetry.Logger.Error("Error saving order state mapping", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save order states"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_states": overrides})
}

func (h *SettingsHandler) DeleteSettings(c *gin.Context) {
	if err := h.gateway.Uninstall(c.Request.Context()); err != nil {
		telemetry.Logger.Error("Error removing gateway settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove settings"})
		return
	}
	c.Status(http.StatusNoContent)
}
