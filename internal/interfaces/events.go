package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
)

// OrderStateChangedEvent is emitted after an effective order transition.
type OrderStateChangedEvent struct {
	Reference     string               `json:"reference"`
	State         models.OrderState    `json:"state"`
	PreviousState models.OrderState    `json:"previous_state"`
	InvoiceStatus models.InvoiceStatus `json:"invoice_status"`
	Timestamp     time.Time            `json:"timestamp"`
}

// InvoiceCreatedEvent is emitted when checkout obtains a Sheepy invoice.
type InvoiceCreatedEvent struct {
	Reference  string    `json:"reference"`
	InvoiceURL string    `json:"invoice_url"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventPublisher fans gateway events out to other services.
type EventPublisher interface {
	OrderStateChanged(ctx context.Context, event OrderStateChangedEvent) error
	InvoiceCreated(ctx context.Context, event InvoiceCreatedEvent) error
}

// ErrOrderLocked is returned by OrderLocker when another holder owns the lock.
var ErrOrderLocked = errors.New("order is locked")

// OrderLocker serializes notification handling per order.
type OrderLocker interface {
	// Acquire returns a release func, or an error when the order is locked.
	Acquire(ctx context.Context, reference string) (func(), error)
}
