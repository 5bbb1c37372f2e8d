package sheepy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/signature"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

// DefaultBaseURL is the production Sheepy API host.
const DefaultBaseURL = "https://api.sheepy.com"

const apiPrefix = "/api/v1"

// Authentication headers shared by outbound requests and inbound notifications.
const (
	TokenHeader     = "X-Token"
	SignatureHeader = "X-Signature"
	TimestampHeader = "X-Timestamp"
)

const (
	RequestTimeout = 30 * time.Second
	ConnectTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API host; defaults to DefaultBaseURL.
	BaseURL   string
	APIKey    string
	SecretKey string
	UserAgent string

	// HTTPClient overrides the transport built by NewHTTPClient.
	HTTPClient *http.Client

	// Now overrides the signing clock.
	Now func() time.Time
}

// Client performs signed calls against the Sheepy API. It never retries;
// callers wanting resilience wrap it with their own policy.
type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	userAgent  string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Sheepy API client
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		now:        now,
	}
}

// NewHTTPClient returns the transport used for API calls: 30s overall
// timeout, 10s connect timeout, certificate verification on, IPv4 only and
// no connection reuse.
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: ConnectTimeout}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, _, addr string) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp4", addr)
	}
	transport.TLSHandshakeTimeout = ConnectTimeout
	transport.DisableKeepAlives = true
	transport.ForceAttemptHTTP2 = false

	return &http.Client{
		Timeout:   RequestTimeout,
		Transport: transport,
	}
}

// CreateInvoice creates a payment invoice and returns its hosted page.
func (c *Client) CreateInvoice(ctx context.Context, req *models.InvoiceRequest) (*models.Invoice, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "sheepy.create_invoice",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("sheepy.reference", req.Reference)),
	)
	defer span.End()

	start := time.Now()
	var invoice models.Invoice
	err := c.Do(ctx, http.MethodPost, "/invoices", req, nil, &invoice)
	telemetry.InvoiceRequestDuration.Observe(time.Since(start).Seconds())
	telemetry.InvoiceRequests.WithLabelValues(outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &invoice, nil
}

// Do sends a signed request. For POST, PUT and PATCH the JSON encoding of
// body is sent and signed. For GET and DELETE body must be nil; params go to
// the query string, which is part of the signed URL, and the signed body is
// empty. A 200 response is decoded into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body any, params url.Values, out any) error {
	method = strings.ToUpper(method)

	fullURL := c.baseURL + apiPrefix + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var payload []byte
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if body != nil {
			var err error
			payload, err = json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
		}
	case http.MethodGet, http.MethodDelete:
		if body != nil {
			return fmt.Errorf("%s request cannot carry a body", method)
		}
	default:
		return fmt.Errorf("unsupported method %q", method)
	}

	// The exact bytes signed below are the bytes sent.
	timestamp := c.now().Unix()
	sig := signature.Sign(timestamp, method, fullURL, string(payload), c.secretKey)

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(TokenHeader, c.apiKey)
	req.Header.Set(SignatureHeader, sig)
	req.Header.Set(TimestampHeader, fmt.Sprintf("%d", timestamp))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Message string `json:"message"`
		}
		msg := ""
		if json.Unmarshal(responseBody, &errorResp) == nil {
			msg = errorResp.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return newUpstreamError(resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return newUpstreamError(resp.StatusCode, "invalid JSON in response")
	}
	return nil
}

// outcome labels an invoice call for metrics. Errors raised before anything
// is sent are request errors, not the API's fault.
func outcome(err error) string {
	var transportErr *TransportError
	var upstreamErr *UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.As(err, &upstreamErr):
		return "upstream_error"
	default:
		return "request_error"
	}
}
