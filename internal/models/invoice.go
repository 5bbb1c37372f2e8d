package models

import (
	"encoding/json"
	"time"
)

// InvoiceStatus is the payment lifecycle state reported by Sheepy.
type InvoiceStatus string

const (
	InvoiceNew             InvoiceStatus = "new"
	InvoicePartiallyPaid   InvoiceStatus = "partially_paid"
	InvoiceConfirming      InvoiceStatus = "confirming"
	InvoiceExpired         InvoiceStatus = "expired"
	InvoiceInvalid         InvoiceStatus = "invalid"
	InvoiceDone            InvoiceStatus = "done"
	InvoiceRefundRequested InvoiceStatus = "refund_requested"
	InvoiceRefunded        InvoiceStatus = "refunded"
	InvoiceError           InvoiceStatus = "error"
)

// KnownInvoiceStatuses returns the closed set of statuses in display order.
func KnownInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceNew,
		InvoicePartiallyPaid,
		InvoiceConfirming,
		InvoiceExpired,
		InvoiceInvalid,
		InvoiceDone,
		InvoiceRefundRequested,
		InvoiceRefunded,
		InvoiceError,
	}
}

var invoiceStatusDescriptions = map[InvoiceStatus]string{
	InvoiceNew:             `Awaiting Sheepy payment: "new" status`,
	InvoicePartiallyPaid:   `Sheepy partial payment received: "partially_paid" status`,
	InvoiceConfirming:      `Awaiting Sheepy payment confirmations: "confirming" status`,
	InvoiceExpired:         `Sheepy payment expired: "expired" status`,
	InvoiceInvalid:         `Sheepy payment is invalid: "invalid" status`,
	InvoiceDone:            `Sheepy payment successfully received: "done" status`,
	InvoiceRefundRequested: `Sheepy payment refund requested: "refund_requested" status`,
	InvoiceRefunded:        `Sheepy payment refunded: "refunded" status`,
	InvoiceError:           `Sheepy payment error: "error" status`,
}

// Description returns the merchant-facing label of the status.
func (s InvoiceStatus) Description() string {
	return invoiceStatusDescriptions[s]
}

// Valid reports whether s belongs to the closed status enumeration.
func (s InvoiceStatus) Valid() bool {
	_, ok := invoiceStatusDescriptions[s]
	return ok
}

// NotificationTypeInvoiceStatusChanged is the only notification type that
// affects orders.
const NotificationTypeInvoiceStatusChanged = "invoice_status_changed"

// InboundNotification is a webhook request as received. RawBody holds the
// exact bytes the signature was computed over.
type InboundNotification struct {
	TimestampHeader string
	SignatureHeader string
	RawBody         []byte
	ReceivedAt      time.Time
}

// NotificationPayload is the decoded webhook body.
type NotificationPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// InvoiceStatusChangedData is the data of an invoice_status_changed event.
type InvoiceStatusChangedData struct {
	Invoice InvoiceRef `json:"invoice"`
}

// InvoiceRef identifies the invoice and the order it pays for.
type InvoiceRef struct {
	ID        string        `json:"id,omitempty"`
	Reference string        `json:"reference"`
	Status    InvoiceStatus `json:"status"`
}

// InvoiceRequest is the body of an invoice creation call.
type InvoiceRequest struct {
	Amount      json.Number     `json:"amount"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Email       string          `json:"email"`
	BackURL     string          `json:"back_url"`
	SuccessURL  string          `json:"success_url"`
	Settings    InvoiceSettings `json:"settings"`
}

// InvoiceSettings carries per-invoice processor settings.
type InvoiceSettings struct {
	Currency        string `json:"currency"`
	NotificationURL string `json:"notification_url"`
}

// Invoice is the decoded response of an invoice creation call.
type Invoice struct {
	Data InvoiceData `json:"data"`
}

// InvoiceData holds the hosted payment page of a created invoice.
type InvoiceData struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Status string `json:"status,omitempty"`
}
