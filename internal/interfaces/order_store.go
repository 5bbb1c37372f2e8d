package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
)

// OrderStore defines the contract for shop order access. Implementations
// serialize concurrent writes to the same order and keep every mutation
// idempotent: re-applying a transition, completion or identical note is a no-op.
type OrderStore interface {
	// Lookup returns nil, nil when no order has the reference.
	Lookup(ctx context.Context, reference string) (*models.Order, error)
	// Transition moves the order to state and reports whether it changed.
	Transition(ctx context.Context, order *models.Order, state models.OrderState) (bool, error)
	MarkPaymentComplete(ctx context.Context, order *models.Order) error
	AddNote(ctx context.Context, order *models.Order, text string) error
	Notes(ctx context.Context, reference string) ([]models.OrderNote, error)
}
