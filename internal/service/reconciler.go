package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/status"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/webhook"
)

// ReconcileConfig is the per-request configuration of notification handling.
type ReconcileConfig struct {
	NotificationKey string
	NotificationURL string
	Overrides       models.StatusOverrides
	Debug           bool
}

type sideEffect struct {
	markPaid bool
	note     string
}

// TODO: confirm with Sheepy whether refund_requested, refunded and error
// should really mark the payment complete; the shipped integration does.
var sideEffects = map[models.InvoiceStatus]sideEffect{
	models.InvoicePartiallyPaid: {note: "Sheepy payment is paid partially. Please contact to merchant to refund or complete the payment."},
	models.InvoiceConfirming:    {note: "Sheepy payment is confirming."},
	models.InvoiceExpired:       {note: "Sheepy payment is expired."},
	models.InvoiceInvalid:       {note: "Sheepy payment is invalid."},
	models.InvoiceDone: {
		markPaid: true,
		note:     "Sheepy invoice payment completed. Payment credited to your merchant account.",
	},
	models.InvoiceRefundRequested: {markPaid: true, note: "Sheepy invoice payment refund requested."},
	models.InvoiceRefunded:        {markPaid: true, note: "Sheepy invoice payment refunded."},
	models.InvoiceError:           {markPaid: true, note: "Sheepy invoice payment error."},
}

// Reconciler applies Sheepy notifications to shop orders. It is stateless;
// re-delivering a notification relies on the OrderStore's idempotence.
type Reconciler struct {
	store     interfaces.OrderStore
	locker    interfaces.OrderLocker
	publisher interfaces.EventPublisher
	now       func() time.Time
}

// NewReconciler builds a Reconciler. locker and publisher may be nil.
func NewReconciler(
	store interfaces.OrderStore,
	locker interfaces.OrderLocker,
	publisher interfaces.EventPublisher,
) *Reconciler {
	return &Reconciler{
		store:     store,
		locker:    locker,
		publisher: publisher,
		now:       time.Now,
	}
}

// Handle verifies n, then applies it. Every failure is a *models.ReconcileError.
// Verification, parsing, lookup and status resolution all happen before the
// first order mutation.
func (r *Reconciler) Handle(ctx context.Context, n *models.InboundNotification, cfg ReconcileConfig) (err error) {
	outcome := "ok"
	defer func() {
		if err != nil {
			outcome = strings.ToLower(string(models.KindOf(err)))
		}
		telemetry.WebhookNotifications.WithLabelValues(outcome).Inc()
	}()

	debug := telemetry.Debug(cfg.Debug)

	if cfg.NotificationKey == "" {
		telemetry.Logger.Warn("Rejected Sheepy notification: notification key is not configured")
		return &models.ReconcileError{Kind: models.KindAuthFailed, Err: errNotificationKeyMissing}
	}
	if verr := webhook.Verify(n, cfg.NotificationURL, cfg.NotificationKey); verr != nil {
		telemetry.Logger.Warn("Rejected Sheepy notification", zap.Error(verr))
		return &models.ReconcileError{Kind: models.KindAuthFailed, Err: verr}
	}

	var payload models.NotificationPayload
	if jerr := json.Unmarshal(n.RawBody, &payload); jerr != nil {
		return &models.ReconcileError{Kind: models.KindMalformedPayload, Err: jerr}
	}

	if payload.Type != models.NotificationTypeInvoiceStatusChanged {
		debug.Debug("Ignoring notification", zap.String("type", payload.Type))
		outcome = "ignored"
		return nil
	}

	var data models.InvoiceStatusChangedData
	if jerr := json.Unmarshal(payload.Data, &data); jerr != nil {
		return &models.ReconcileError{Kind: models.KindMalformedPayload, Err: jerr}
	}
	reference := data.Invoice.Reference
	invoiceStatus := data.Invoice.Status
	if reference == "" {
		return &models.ReconcileError{Kind: models.KindMalformedPayload, Err: errors.New("invoice reference is missing")}
	}

	if r.locker != nil {
		release, lerr := r.locker.Acquire(ctx, reference)
		if errors.Is(lerr, interfaces.ErrOrderLocked) {
			return &models.ReconcileError{Kind: models.KindOrderBusy, Reference: reference, Err: lerr}
		}
		if lerr != nil {
			return &models.ReconcileError{Kind: models.KindStoreError, Reference: reference, Err: lerr}
		}
		defer release()
	}

	order, lerr := r.store.Lookup(ctx, reference)
	if lerr != nil {
		return &models.ReconcileError{Kind: models.KindStoreError, Reference: reference, Err: lerr}
	}
	if order == nil {
		telemetry.Logger.Warn("Notification for unknown order", zap.String("reference", reference))
		return &models.ReconcileError{Kind: models.KindOrderNotFound, Reference: reference}
	}

	target, serr := status.Resolve(invoiceStatus, cfg.Overrides)
	if serr != nil {
		telemetry.Logger.Warn("Notification with unsupported status",
			zap.String("reference", reference),
			zap.String("status", string(invoiceStatus)),
		)
		return &models.ReconcileError{Kind: models.KindUnsupportedStatus, Reference: reference, Status: invoiceStatus, Err: serr}
	}

	previous := order.State
	changed, terr := r.store.Transition(ctx, order, target)
	if terr != nil {
		return &models.ReconcileError{Kind: models.KindStoreError, Reference: reference, Err: terr}
	}
	if changed {
		r.stateChanged(ctx, order, previous, invoiceStatus)
	}

	effect := sideEffects[invoiceStatus]
	if effect.markPaid {
		if perr := r.store.MarkPaymentComplete(ctx, order); perr != nil {
			return &models.ReconcileError{Kind: models.KindStoreError, Reference: reference, Err: perr}
		}
	}
	if effect.note != "" {
		if nerr := r.store.AddNote(ctx, order, effect.note); nerr != nil {
			return &models.ReconcileError{Kind: models.KindStoreError, Reference: reference, Err: nerr}
		}
	}

	debug.Debug("Applied notification",
		zap.String("reference", reference),
		zap.String("status", string(invoiceStatus)),
		zap.String("order_state", string(target)),
		zap.Bool("changed", changed),
	)
	return nil
}

func (r *Reconciler) stateChanged(ctx context.Context, order *models.Order, previous models.OrderState, invoiceStatus models.InvoiceStatus) {
	telemetry.OrderTransitions.WithLabelValues(string(order.State)).Inc()

	telemetry.Logger.Info("Order state transition",
		zap.String("reference", order.Reference),
		zap.String("from_state", string(previous)),
		zap.String("to_state", string(order.State)),
		zap.String("invoice_status", string(invoiceStatus)),
	)

	if r.publisher == nil {
		return
	}
	if err := r.publisher.OrderStateChanged(ctx, interfaces.OrderStateChangedEvent{
		Reference:     order.Reference,
		State:         order.State,
		PreviousState: previous,
		InvoiceStatus: invoiceStatus,
		Timestamp:     r.now().UTC(),
	}); err != nil {
		telemetry.Logger.Error("Failed to publish order state change",
			zap.String("reference", order.Reference),
			zap.Error(err),
		)
	}
}
