package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a notification could not be reconciled.
type ErrorKind string

const (
	KindAuthFailed        ErrorKind = "AUTH_FAILED"
	KindOrderNotFound     ErrorKind = "ORDER_NOT_FOUND"
	KindUnsupportedStatus ErrorKind = "UNSUPPORTED_STATUS"
	KindMalformedPayload  ErrorKind = "MALFORMED_PAYLOAD"
	KindOrderBusy         ErrorKind = "ORDER_BUSY"
	KindStoreError        ErrorKind = "STORE_ERROR"
)

// ReconcileError is returned by notification handling. No order mutation
// happens before a ReconcileError of kind AUTH_FAILED, MALFORMED_PAYLOAD,
// ORDER_NOT_FOUND or UNSUPPORTED_STATUS is produced.
type ReconcileError struct {
	Kind      ErrorKind
	Reference string
	Status    InvoiceStatus
	Err       error
}

func (e *ReconcileError) Error() string {
	switch e.Kind {
	case KindAuthFailed:
		return fmt.Sprintf("notification rejected: %v", e.Err)
	case KindOrderNotFound:
		return fmt.Sprintf("could not retrieve the order details for order_id %s", e.Reference)
	case KindUnsupportedStatus:
		return fmt.Sprintf("notification status is not supported: %s", e.Status)
	case KindMalformedPayload:
		return fmt.Sprintf("malformed notification payload: %v", e.Err)
	case KindOrderBusy:
		return fmt.Sprintf("order %s is already being processed", e.Reference)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or "" if err is not a
// ReconcileError.
func KindOf(err error) ErrorKind {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
