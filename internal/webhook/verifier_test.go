package webhook

import (
	"errors"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/sheepy"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/signature"
)

const (
	testURL  = "https://shop.example/wp-json/sheepy-payments/gateway"
	testKey  = "s3cr3t"
	testBody = `{"type":"invoice_status_changed","data":{"invoice":{"reference":"42","status":"done"}}}`
)

func signedNotification(ts int64, body string, receivedAt time.Time) *models.InboundNotification {
	return &models.InboundNotification{
		TimestampHeader: strconv.FormatInt(ts, 10),
		SignatureHeader: signature.Sign(ts, "POST", testURL, body, testKey),
		RawBody:         []byte(body),
		ReceivedAt:      receivedAt,
	}
}

func reason(t *testing.T, err error) RejectReason {
	t.Helper()
	var rej *RejectError
	require.True(t, errors.As(err, &rej), "expected RejectError, got %v", err)
	return rej.Reason
}

func TestVerifyFreshnessBoundaries(t *testing.T) {
	now := time.Unix(1700000100, 0)

	tests := []struct {
		name   string
		age    int64
		accept bool
	}{
		{"same second", 0, true},
		{"one second", 1, true},
		{"window edge", 5, true},
		{"past window", 6, false},
		{"far past", 3600, false},
		{"future", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := signedNotification(now.Unix()-tt.age, testBody, now)
			err := Verify(n, testURL, testKey)
			if tt.accept {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, ReasonStaleTimestamp, reason(t, err))
		})
	}
}

func TestVerifyMissingOrMalformedTimestamp(t *testing.T) {
	now := time.Unix(1700000100, 0)

	for _, header := range []string{"", "0", "abc", "17e8"} {
		n := signedNotification(now.Unix(), testBody, now)
		n.TimestampHeader = header
		assert.Equal(t, ReasonStaleTimestamp, reason(t, Verify(n, testURL, testKey)), header)
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	now := time.Unix(1700000100, 0)
	n := signedNotification(now.Unix()-1, testBody, now)
	n.RawBody = []byte(strings.Replace(testBody, `"42"`, `"43"`, 1))

	assert.Equal(t, ReasonInvalidSignature, reason(t, Verify(n, testURL, testKey)))
}

func TestVerifyRejectsReformattedBody(t *testing.T) {
	now := time.Unix(1700000100, 0)
	n := signedNotification(now.Unix()-1, testBody, now)
	n.RawBody = []byte(strings.ReplaceAll(testBody, ":", ": "))

	assert.Equal(t, ReasonInvalidSignature, reason(t, Verify(n, testURL, testKey)))
}

func TestVerifyRejectsWrongKeyOrURL(t *testing.T) {
	now := time.Unix(1700000100, 0)
	n := signedNotification(now.Unix()-1, testBody, now)

	assert.Equal(t, ReasonInvalidSignature, reason(t, Verify(n, testURL, "other")))
	assert.Equal(t, ReasonInvalidSignature, reason(t, Verify(n, "https://shop.example/other", testKey)))
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	now := time.Unix(1700000100, 0)
	n := signedNotification(now.Unix()-1, testBody, now)
	n.SignatureHeader = ""

	assert.Equal(t, ReasonInvalidSignature, reason(t, Verify(n, testURL, testKey)))
}

func TestVerifyChecksFreshnessFirst(t *testing.T) {
	now := time.Unix(1700000100, 0)
	n := signedNotification(now.Unix()-60, testBody, now)
	n.SignatureHeader = "bogus"

	assert.Equal(t, ReasonStaleTimestamp, reason(t, Verify(n, testURL, testKey)))
}

func TestVerifyDefaultsReceiptTimeToNow(t *testing.T) {
	n := signedNotification(time.Now().Unix(), testBody, time.Time{})
	assert.NoError(t, Verify(n, testURL, testKey))
}

func TestNewNotificationReadsHeaders(t *testing.T) {
	r := httptest.NewRequest("POST", "/wp-json/sheepy-payments/gateway", strings.NewReader(testBody))
	r.Header.Set(sheepy.TimestampHeader, "123")
	r.Header.Set(sheepy.SignatureHeader, "abc")
	at := time.Unix(200, 0)

	n := NewNotification(r, []byte(testBody), at)

	assert.Equal(t, "123", n.TimestampHeader)
	assert.Equal(t, "abc", n.SignatureHeader)
	assert.Equal(t, []byte(testBody), n.RawBody)
	assert.Equal(t, at, n.ReceivedAt)
}
