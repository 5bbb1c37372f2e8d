package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/sheepy"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/status"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

const Version = "1.0.0"

const (
	ResultSuccess = "success"
	ResultError   = "error"

	checkoutErrorMessage = "Sorry, but checkout with Sheepy does not appear to be working."
)

var (
	errNotificationKeyMissing = errors.New("notification key is not configured")
	errGatewayDisabled        = errors.New("gateway is disabled")
)

// InvoiceCreator creates Sheepy invoices. *sheepy.Client implements it.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, req *models.InvoiceRequest) (*models.Invoice, error)
}

// GatewayConfig holds the shop-level values the gateway needs.
type GatewayConfig struct {
	SiteURL          string
	NotificationPath string
	SuccessPath      string
	Currency         string
	APIBaseURL       string
	HTTPClient       *http.Client

	// NewInvoiceClient builds the API client for a set of credentials.
	// Defaults to a *sheepy.Client.
	NewInvoiceClient func(creds models.Credentials) InvoiceCreator
}

// PaymentResult is returned to the checkout page.
type PaymentResult struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Messages string `json:"messages,omitempty"`
}

// StatusOption is one row of the order-state mapping form.
type StatusOption struct {
	Status      models.InvoiceStatus `json:"status"`
	Description string               `json:"description"`
	Selected    models.OrderState    `json:"selected"`
}

// Gateway is the Sheepy payment method of the shop.
type Gateway struct {
	cfg        GatewayConfig
	settings   interfaces.SettingsStore
	orders     interfaces.OrderStore
	reconciler *Reconciler
	publisher  interfaces.EventPublisher
	now        func() time.Time
}

func NewGateway(
	cfg GatewayConfig,
	settings interfaces.SettingsStore,
	orders interfaces.OrderStore,
	reconciler *Reconciler,
	publisher interfaces.EventPublisher,
) *Gateway {
	if cfg.NewInvoiceClient == nil {
		baseURL, httpClient := cfg.APIBaseURL, cfg.HTTPClient
		cfg.NewInvoiceClient = func(creds models.Credentials) InvoiceCreator {
			return sheepy.NewClient(sheepy.Config{
				BaseURL:    baseURL,
				APIKey:     creds.APIKey,
				SecretKey:  creds.SecretKey,
				UserAgent:  "Sheepy Go gateway v" + Version,
				HTTPClient: httpClient,
			})
		}
	}
	return &Gateway{
		cfg:        cfg,
		settings:   settings,
		orders:     orders,
		reconciler: reconciler,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Options returns the current settings with secrets redacted.
func (g *Gateway) Options(ctx context.Context) (models.GatewaySettings, error) {
	settings, err := g.settings.Load(ctx)
	if err != nil {
		return models.GatewaySettings{}, err
	}
	return settings.Redacted(), nil
}

// NotificationURL is the address Sheepy posts notifications to. Inbound
// signatures are checked against exactly this string.
func (g *Gateway) NotificationURL() string {
	return g.siteURL() + "/" + strings.TrimLeft(g.cfg.NotificationPath, "/")
}

// SuccessURL is where the customer lands after paying for the order.
func (g *Gateway) SuccessURL(reference string) string {
	return g.siteURL() + "/" + strings.Trim(g.cfg.SuccessPath, "/") + "/" + reference
}

func (g *Gateway) siteURL() string {
	return strings.TrimRight(g.cfg.SiteURL, "/")
}

// IsAvailable reports whether the gateway may be offered at checkout.
func (g *Gateway) IsAvailable(ctx context.Context) (bool, error) {
	settings, err := g.settings.Load(ctx)
	if err != nil {
		return false, err
	}
	return settings.Enabled && settings.Credentials.Complete(), nil
}

// ProcessPayment creates a Sheepy invoice for the order and returns the
// redirect to its payment page. Failures never surface upstream detail to
// the customer.
func (g *Gateway) ProcessPayment(ctx context.Context, reference string) *PaymentResult {
	ctx, span := telemetry.Tracer.Start(ctx, "gateway.process_payment")
	defer span.End()
	span.SetAttributes(attribute.String("order.reference", reference))

	settings, err := g.settings.Load(ctx)
	if err != nil {
		telemetry.Logger.Error("Failed to load gateway settings", zap.Error(err))
		return checkoutError()
	}
	debug := telemetry.Debug(settings.DebugEnabled)
	debug.Debug("Entered ProcessPayment", zap.String("reference", reference))

	if reference == "" {
		debug.Debug("ProcessPayment called without an order reference")
		return &PaymentResult{
			Result:   ResultError,
			Messages: "The Sheepy payment plugin was called to process a payment but the order_id was missing. Cannot continue!",
		}
	}

	order, err := g.orders.Lookup(ctx, reference)
	if err != nil {
		telemetry.Logger.Error("Failed to look up order", zap.String("reference", reference), zap.Error(err))
		return checkoutError()
	}
	if order == nil {
		debug.Debug("ProcessPayment called for unknown order", zap.String("reference", reference))
		return &PaymentResult{
			Result: ResultError,
			Messages: fmt.Sprintf("The Sheepy payment plugin was called to process a payment but could not retrieve the order details for order_id %s. Cannot continue!",
				reference),
		}
	}

	if !settings.Enabled || !settings.Credentials.Complete() {
		telemetry.Logger.Warn("Checkout attempted while the gateway is unavailable", zap.String("reference", reference))
		return checkoutError()
	}

	currency := order.Currency
	if currency == "" {
		currency = g.cfg.Currency
	}

	req := &models.InvoiceRequest{
		Amount:      json.Number(order.Total.String()),
		Reference:   order.Reference,
		Description: fmt.Sprintf("%s Order #%s", g.siteURL(), order.Reference),
		Email:       order.BillingEmail,
		BackURL:     g.siteURL(),
		SuccessURL:  g.SuccessURL(order.Reference),
		Settings: models.InvoiceSettings{
			Currency:        currency,
			NotificationURL: g.NotificationURL(),
		},
	}

	invoice, err := g.cfg.NewInvoiceClient(settings.Credentials).CreateInvoice(ctx, req)
	if err != nil {
		debug.Debug("Error generating invoice",
			zap.String("reference", reference),
			zap.Error(err),
		)
		telemetry.Logger.Error("Sheepy invoice request failed", zap.String("reference", reference), zap.Error(err))
		return checkoutError()
	}
	if invoice == nil || invoice.Data.URL == "" {
		debug.Debug("API returned an empty invoice", zap.String("reference", reference))
		return checkoutError()
	}

	g.invoiceCreated(ctx, order, currency, invoice.Data.URL)

	debug.Debug("Leaving ProcessPayment", zap.String("reference", reference))
	return &PaymentResult{
		Result:   ResultSuccess,
		Redirect: invoice.Data.URL,
	}
}

func (g *Gateway) invoiceCreated(ctx context.Context, order *models.Order, currency, invoiceURL string) {
	if g.publisher == nil {
		return
	}
	if err := g.publisher.InvoiceCreated(ctx, interfaces.InvoiceCreatedEvent{
		Reference:  order.Reference,
		InvoiceURL: invoiceURL,
		Amount:     order.Total.String(),
		Currency:   currency,
		Timestamp:  g.now().UTC(),
	}); err != nil {
		telemetry.Logger.Error("Failed to publish invoice creation",
			zap.String("reference", order.Reference),
			zap.Error(err),
		)
	}
}

func checkoutError() *PaymentResult {
	return &PaymentResult{Result: ResultError, Messages: checkoutErrorMessage}
}

// HandleNotification applies an inbound notification using the stored settings.
func (g *Gateway) HandleNotification(ctx context.Context, n *models.InboundNotification) error {
	settings, err := g.settings.Load(ctx)
	if err != nil {
		return &models.ReconcileError{Kind: models.KindStoreError, Err: fmt.Errorf("load settings: %w", err)}
	}
	// An empty notification key never authenticates anything.
	if settings.NotificationKey == "" {
		telemetry.Logger.Warn("Rejected Sheepy notification: notification key is not configured")
		return &models.ReconcileError{Kind: models.KindAuthFailed, Err: errNotificationKeyMissing}
	}
	if !settings.Enabled {
		telemetry.Logger.Warn("Rejected Sheepy notification: gateway is disabled")
		return &models.ReconcileError{Kind: models.KindAuthFailed, Err: errGatewayDisabled}
	}

	return g.reconciler.Handle(ctx, n, ReconcileConfig{
		NotificationKey: settings.NotificationKey,
		NotificationURL: g.NotificationURL(),
		Overrides:       settings.StatusOverrides,
		Debug:           settings.DebugEnabled,
	})
}

// UpdateOrderStates stores the requested mapping entries that name a known
// invoice status and order state. Other entries are ignored. It returns the
// overrides now in effect.
func (g *Gateway) UpdateOrderStates(ctx context.Context, requested map[string]string) (models.StatusOverrides, error) {
	settings, err := g.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	debug := telemetry.Debug(settings.DebugEnabled)

	updates := status.ApplyOverrides(requested, models.KnownOrderStates())
	for invoiceStatus, state := range updates {
		previous, _ := status.Resolve(invoiceStatus, settings.StatusOverrides)
		if previous == state {
			continue
		}
		debug.Debug("Updating order state mapping",
			zap.String("status", string(invoiceStatus)),
			zap.String("from_state", string(previous)),
			zap.String("to_state", string(state)),
		)
	}

	settings.StatusOverrides = status.Merge(settings.StatusOverrides, updates)
	if err := g.settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings.StatusOverrides, nil
}

// OrderStatusOptions lists every invoice status with the order state it
// currently maps to.
func (g *Gateway) OrderStatusOptions(ctx context.Context) ([]StatusOption, error) {
	settings, err := g.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	statuses := models.KnownInvoiceStatuses()
	options := make([]StatusOption, 0, len(statuses))
	for _, s := range statuses {
		selected, _ := status.Resolve(s, settings.StatusOverrides)
		options = append(options, StatusOption{
			Status:      s,
			Description: s.Description(),
			Selected:    selected,
		})
	}
	return options, nil
}

// Uninstall removes every stored gateway setting.
func (g *Gateway) Uninstall(ctx context.Context) error {
	if err := g.settings.Delete(ctx); err != nil {
		return err
	}
	telemetry.Logger.Info("Sheepy gateway settings removed")
	return nil
}

// Order returns the order and its notes, or nil when it does not exist.
func (g *Gateway) Order(ctx context.Context, reference string) (*models.Order, []models.OrderNote, error) {
	order, err := g.orders.Lookup(ctx, reference)
	if err != nil || order == nil {
		return nil, nil, err
	}
	notes, err := g.orders.Notes(ctx, reference)
	if err != nil {
		return nil, nil, err
	}
	return order, notes, nil
}
