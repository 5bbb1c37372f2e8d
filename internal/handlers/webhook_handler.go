package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/webhook"
)

// MaxNotificationBytes caps the webhook request body.
const MaxNotificationBytes = 1 << 20

// internalNotificationError replaces storage and unclassified failures in the
// response body; the detail only goes to the log.
const internalNotificationError = "notification could not be processed"

type WebhookHandler struct {
	gateway PaymentGateway
}

func NewWebhookHandler(gateway PaymentGateway) *WebhookHandler {
	return &WebhookHandler{gateway: gateway}
}

// HandleNotification always answers 200 and reports the outcome in the body.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	receivedAt := time.Now()

	// Verification needs the body exactly as sent; never bind it.
	rawBody, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxNotificationBytes))
	if err != nil {
		telemetry.Logger.Warn("Error reading notification body", zap.Error(err))
		respondNotification(c, &models.ReconcileError{Kind: models.KindMalformedPayload, Err: err})
		return
	}

	n := webhook.NewNotification(c.Request, rawBody, receivedAt)
	if err := h.gateway.HandleNotification(c.Request.Context(), n); err != nil {
		telemetry.Logger.Info("Notification not applied",
			zap.String("kind", string(models.KindOf(err))),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		respondNotification(c, err)
		return
	}

	respondNotification(c, nil)
}

func respondNotification(c *gin.Context, err error) {
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": notificationErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "error": nil})
}

func notificationErrorMessage(err error) string {
	switch models.KindOf(err) {
	case models.KindStoreError, "":
		return internalNotificationError
	default:
		return err.Error()
	}
}
