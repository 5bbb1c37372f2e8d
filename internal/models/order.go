package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the store-side lifecycle state of an order.
type OrderState string

const (
	OrderPending    OrderState = "pending"
	OrderProcessing OrderState = "processing"
	OrderOnHold     OrderState = "on-hold"
	OrderCompleted  OrderState = "completed"
	OrderCancelled  OrderState = "cancelled"
	OrderRefunded   OrderState = "refunded"
	OrderFailed     OrderState = "failed"
)

// orderStatePrefix is carried by order states stored by older shop installs.
const orderStatePrefix = "wc-"

// KnownOrderStates lists every order state the store recognizes.
func KnownOrderStates() []OrderState {
	return []OrderState{
		OrderPending,
		OrderProcessing,
		OrderOnHold,
		OrderCompleted,
		OrderCancelled,
		OrderRefunded,
		OrderFailed,
	}
}

// ParseOrderState normalizes s and reports whether it names a known state.
// A leading "wc-" is accepted and stripped.
func ParseOrderState(s string) (OrderState, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), orderStatePrefix)
	for _, st := range KnownOrderStates() {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Order is the subset of a shop order this gateway reads and mutates.
type Order struct {
	Reference     string
	State         OrderState
	PreviousState string
	Total         decimal.Decimal
	Currency      string
	BillingEmail  string
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsPaid reports whether payment completion was already recorded.
func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}

// OrderNote is a human-readable annotation attached to an order.
type OrderNote struct {
	ID        int64
	Reference string
	Note      string
	CreatedAt time.Time
}
