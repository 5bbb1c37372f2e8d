// Package webhook authenticates Sheepy notifications.
//
// A notification is accepted only when its X-Timestamp is at most
// FreshnessWindow old at receipt (and not in the future) and its X-Signature
// equals the HMAC-SHA256 of timestamp + "POST" + notification URL + raw body
// keyed by the notification key. The raw body is used untouched; any
// re-encoding before verification breaks the signature.
package webhook

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/sheepy"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/signature"
)

// FreshnessWindow is the maximum age, in seconds, of an accepted notification.
const FreshnessWindow int64 = 5

// RejectReason says why a notification was not authenticated.
type RejectReason string

const (
	ReasonStaleTimestamp   RejectReason = "STALE_OR_MISSING_TIMESTAMP"
	ReasonInvalidSignature RejectReason = "INVALID_SIGNATURE"
)

// RejectError is returned by Verify for unauthenticated notifications.
type RejectError struct {
	Reason RejectReason
}

func (e *RejectError) Error() string {
	switch e.Reason {
	case ReasonStaleTimestamp:
		return "notification has invalid timestamp or the request has expired"
	case ReasonInvalidSignature:
		return "notification has invalid signature"
	}
	return string(e.Reason)
}

// NewNotification captures the authentication headers and raw body of r.
func NewNotification(r *http.Request, rawBody []byte, receivedAt time.Time) *models.InboundNotification {
	return &models.InboundNotification{
		TimestampHeader: r.Header.Get(sheepy.TimestampHeader),
		SignatureHeader: r.Header.Get(sheepy.SignatureHeader),
		RawBody:         rawBody,
		ReceivedAt:      receivedAt,
	}
}

// Verify checks freshness, then signature, stopping at the first failure.
// A zero ReceivedAt means now.
func Verify(n *models.InboundNotification, expectedURL, notificationKey string) error {
	now := n.ReceivedAt
	if now.IsZero() {
		now = time.Now()
	}

	timestamp, ok := checkFreshness(n.TimestampHeader, now.Unix())
	if !ok {
		return &RejectError{Reason: ReasonStaleTimestamp}
	}

	expected := signature.Sign(timestamp, http.MethodPost, expectedURL, string(n.RawBody), notificationKey)
	if !signature.Equal(expected, strings.TrimSpace(n.SignatureHeader)) {
		return &RejectError{Reason: ReasonInvalidSignature}
	}
	return nil
}

func checkFreshness(header string, now int64) (int64, bool) {
	timestamp, err := strconv.ParseInt(strings.TrimSpace(header), 10, 64)
	if err != nil || timestamp == 0 {
		return 0, false
	}
	age := now - timestamp
	if age < 0 || age > FreshnessWindow {
		return 0, false
	}
	return timestamp, true
}
