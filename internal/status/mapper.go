// Package status maps Sheepy invoice statuses onto shop order states.
package status

import (
	"errors"
	"strings"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
)

// ErrUnsupportedStatus is returned for statuses outside the known enumeration.
var ErrUnsupportedStatus = errors.New("unsupported invoice status")

var defaults = map[models.InvoiceStatus]models.OrderState{
	models.InvoiceNew:             models.OrderPending,
	models.InvoiceConfirming:      models.OrderProcessing,
	models.InvoicePartiallyPaid:   models.OrderOnHold,
	models.InvoiceExpired:         models.OrderCancelled,
	models.InvoiceInvalid:         models.OrderOnHold,
	models.InvoiceDone:            models.OrderCompleted,
	models.InvoiceRefundRequested: models.OrderProcessing,
	models.InvoiceRefunded:        models.OrderRefunded,
	models.InvoiceError:           models.OrderFailed,
}

// Defaults returns a copy of the built-in mapping.
func Defaults() models.StatusOverrides {
	out := make(models.StatusOverrides, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// Resolve returns the order state for s. A valid override wins over the
// default; an override naming an unknown order state is ignored. Statuses
// outside the known enumeration fail even when an override names them.
func Resolve(s models.InvoiceStatus, overrides models.StatusOverrides) (models.OrderState, error) {
	if !s.Valid() {
		return "", ErrUnsupportedStatus
	}
	if v, ok := overrides[s]; ok {
		if state, known := models.ParseOrderState(string(v)); known {
			return state, nil
		}
	}
	if state, ok := defaults[s]; ok {
		return state, nil
	}
	return "", ErrUnsupportedStatus
}

// ApplyOverrides keeps the requested entries whose key is a known invoice
// status and whose value is one of knownStates.
func ApplyOverrides(requested map[string]string, knownStates []models.OrderState) models.StatusOverrides {
	allowed := make(map[models.OrderState]bool, len(knownStates))
	for _, s := range knownStates {
		allowed[s] = true
	}

	out := make(models.StatusOverrides)
	for k, v := range requested {
		invoiceStatus := models.InvoiceStatus(strings.TrimSpace(strings.ToLower(k)))
		if !invoiceStatus.Valid() {
			continue
		}
		state, ok := models.ParseOrderState(v)
		if !ok || !allowed[state] {
			continue
		}
		out[invoiceStatus] = state
	}
	return out
}

// Sanitize drops invalid entries from overrides loaded from storage.
func Sanitize(overrides models.StatusOverrides) models.StatusOverrides {
	raw := make(map[string]string, len(overrides))
	for k, v := range overrides {
		raw[string(k)] = string(v)
	}
	return ApplyOverrides(raw, models.KnownOrderStates())
}

// Merge returns current with updates applied on top.
func Merge(current, updates models.StatusOverrides) models.StatusOverrides {
	out := make(models.StatusOverrides, len(current)+len(updates))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}
