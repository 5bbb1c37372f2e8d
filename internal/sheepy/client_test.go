package sheepy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/signature"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

var fixedNow = time.Unix(1700000000, 0)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		BaseURL:   serverURL,
		APIKey:    "api-key",
		SecretKey: "secret-key",
		UserAgent: "test-agent",
		Now:       func() time.Time { return fixedNow },
	})
}

func testInvoiceRequest() *models.InvoiceRequest {
	return &models.InvoiceRequest{
		Amount:      json.Number("10.50"),
		Reference:   "42",
		Description: "https://shop.example Order #42",
		Email:       "buyer@example.com",
		BackURL:     "https://shop.example",
		SuccessURL:  "https://shop.example/checkout/order-received/42",
		Settings: models.InvoiceSettings{
			Currency:        "USD",
			NotificationURL: "https://shop.example/wp-json/sheepy-payments/gateway",
		},
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})

	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, RequestTimeout, c.httpClient.Timeout)
	assert.NotNil(t, c.now)
}

func TestNewHTTPClientTransport(t *testing.T) {
	hc := NewHTTPClient()

	tr, ok := hc.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, RequestTimeout, hc.Timeout)
	assert.True(t, tr.DisableKeepAlives)
	if tr.TLSClientConfig != nil {
		assert.False(t, tr.TLSClientConfig.InsecureSkipVerify)
	}
}

func TestCreateInvoiceSignsTransmittedBytes(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/invoices", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "api-key", r.Header.Get(TokenHeader))
		assert.Equal(t, strconv.FormatInt(fixedNow.Unix(), 10), r.Header.Get(TimestampHeader))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		want := signature.Sign(fixedNow.Unix(), "POST", serverURL+"/api/v1/invoices", string(body), "secret-key")
		assert.Equal(t, want, r.Header.Get(SignatureHeader))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, "42", decoded["reference"])
		assert.Equal(t, 10.5, decoded["amount"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"url":"https://pay.sheepy.com/i/abc"}}`))
	}))
	defer server.Close()
	serverURL = server.URL

	invoice, err := newTestClient(server.URL).CreateInvoice(context.Background(), testInvoiceRequest())

	require.NoError(t, err)
	assert.Equal(t, "https://pay.sheepy.com/i/abc", invoice.Data.URL)
}

func TestCreateInvoiceUpstreamErrorIsSanitized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"<b>amount</b> is invalid"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateInvoice(context.Background(), testInvoiceRequest())

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnprocessableEntity, upstream.StatusCode)
	assert.Equal(t, "&lt;b&gt;amount&lt;/b&gt; is invalid", upstream.Message)
}

func TestCreateInvoiceNonJSONErrorUsesStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateInvoice(context.Background(), testInvoiceRequest())

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "Bad Gateway", upstream.Message)
}

func TestCreateInvoiceInvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateInvoice(context.Background(), testInvoiceRequest())

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusOK, upstream.StatusCode)
}

func TestCreateInvoiceTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := newTestClient(addr).CreateInvoice(context.Background(), testInvoiceRequest())

	var transport *TransportError
	require.True(t, errors.As(err, &transport))
	assert.Contains(t, err.Error(), "request error")
}

func TestDoGetSignsQueryAndEmptyBody(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "abc", r.URL.Query().Get("id"))

		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)

		want := signature.Sign(fixedNow.Unix(), "GET", serverURL+"/api/v1/invoices?id=abc", "", "secret-key")
		assert.Equal(t, want, r.Header.Get(SignatureHeader))

		_, _ = w.Write([]byte(`{"data":{"id":"abc","url":"u","status":"new"}}`))
	}))
	defer server.Close()
	serverURL = server.URL

	var out models.Invoice
	err := newTestClient(server.URL).Do(context.Background(), "get", "/invoices", nil, url.Values{"id": {"abc"}}, &out)

	require.NoError(t, err)
	assert.Equal(t, "new", out.Data.Status)
}

func TestDoRejectsBodyOnDelete(t *testing.T) {
	err := newTestClient("http://127.0.0.1:1").Do(context.Background(), http.MethodDelete, "/invoices/1", map[string]string{"a": "b"}, nil, nil)
	assert.Error(t, err)
}

func TestDoRejectsUnknownMethod(t *testing.T) {
	err := newTestClient("http://127.0.0.1:1").Do(context.Background(), "TRACE", "/invoices", nil, nil, nil)
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "success", err: nil, want: "ok"},
		{name: "transport", err: &TransportError{Err: errors.New("connection reset")}, want: "transport_error"},
		{name: "upstream", err: newUpstreamError(http.StatusBadGateway, "bad gateway"), want: "upstream_error"},
		{name: "wrapped upstream", err: fmt.Errorf("create invoice: %w", newUpstreamError(http.StatusBadRequest, "invalid")), want: "upstream_error"},
		{name: "local", err: errors.New("GET request cannot carry a body"), want: "request_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.err))
		})
	}
}

func TestCreateInvoiceLocalFailureIsRequestError(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	requestErrors := testutil.ToFloat64(telemetry.InvoiceRequests.WithLabelValues("request_error"))
	upstreamErrors := testutil.ToFloat64(telemetry.InvoiceRequests.WithLabelValues("upstream_error"))

	req := testInvoiceRequest()
	req.Amount = json.Number("ten")
	_, err := newTestClient(server.URL).CreateInvoice(context.Background(), req)

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, requestErrors+1, testutil.ToFloat64(telemetry.InvoiceRequests.WithLabelValues("request_error")))
	assert.Equal(t, upstreamErrors, testutil.ToFloat64(telemetry.InvoiceRequests.WithLabelValues("upstream_error")))
}
