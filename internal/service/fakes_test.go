package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/signature"
)

const (
	testNotificationKey = "nk-test"
	testNotificationURL = "https://shop.example/wp-json/sheepy-payments/gateway"
)

type memoryOrderStore struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	notes       map[string][]string
	transitions int
	lookupErr   error
}

func newMemoryOrderStore(orders ...*models.Order) *memoryOrderStore {
	s := &memoryOrderStore{
		orders: make(map[string]*models.Order),
		notes:  make(map[string][]string),
	}
	for _, o := range orders {
		s.orders[o.Reference] = o
	}
	return s
}

func (s *memoryOrderStore) Lookup(_ context.Context, reference string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	o, ok := s.orders[reference]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *memoryOrderStore) Transition(_ context.Context, order *models.Order, state models.OrderState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.orders[order.Reference]
	if stored.State == state {
		return false, nil
	}
	stored.PreviousState = string(stored.State)
	stored.State = state
	order.PreviousState = stored.PreviousState
	order.State = state
	s.transitions++
	return true, nil
}

func (s *memoryOrderStore) MarkPaymentComplete(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.orders[order.Reference]
	if stored.PaidAt == nil {
		now := time.Now()
		stored.PaidAt = &now
	}
	order.PaidAt = stored.PaidAt
	return nil
}

func (s *memoryOrderStore) AddNote(_ context.Context, order *models.Order, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.notes[order.Reference]
	if len(notes) > 0 && notes[len(notes)-1] == text {
		return nil
	}
	s.notes[order.Reference] = append(notes, text)
	return nil
}

func (s *memoryOrderStore) Notes(_ context.Context, reference string) ([]models.OrderNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.OrderNote, 0, len(s.notes[reference]))
	for i, n := range s.notes[reference] {
		out = append(out, models.OrderNote{ID: int64(i + 1), Reference: reference, Note: n})
	}
	return out, nil
}

func (s *memoryOrderStore) order(reference string) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[reference]
}

type memorySettingsStore struct {
	settings *models.GatewaySettings
	saved    int
	deleted  bool
}

func (s *memorySettingsStore) Load(context.Context) (*models.GatewaySettings, error) {
	if s.settings == nil {
		return models.DefaultGatewaySettings(), nil
	}
	cp := *s.settings
	cp.StatusOverrides = make(models.StatusOverrides, len(s.settings.StatusOverrides))
	for k, v := range s.settings.StatusOverrides {
		cp.StatusOverrides[k] = v
	}
	return &cp, nil
}

func (s *memorySettingsStore) Save(_ context.Context, settings *models.GatewaySettings) error {
	cp := *settings
	s.settings = &cp
	s.saved++
	return nil
}

func (s *memorySettingsStore) Delete(context.Context) error {
	s.settings = nil
	s.deleted = true
	return nil
}

type stubLocker struct {
	err      error
	acquired []string
	released int
}

func (l *stubLocker) Acquire(_ context.Context, reference string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, reference)
	return func() { l.released++ }, nil
}

type recordingPublisher struct {
	stateChanges []interfaces.OrderStateChangedEvent
	invoices     []interfaces.InvoiceCreatedEvent
	err          error
}

func (p *recordingPublisher) OrderStateChanged(_ context.Context, e interfaces.OrderStateChangedEvent) error {
	p.stateChanges = append(p.stateChanges, e)
	return p.err
}

func (p *recordingPublisher) InvoiceCreated(_ context.Context, e interfaces.InvoiceCreatedEvent) error {
	p.invoices = append(p.invoices, e)
	return p.err
}

func signedNotification(body string, ts, receivedAt time.Time) *models.InboundNotification {
	return signedNotificationWithKey(body, testNotificationKey, ts, receivedAt)
}

func signedNotificationWithKey(body, key string, ts, receivedAt time.Time) *models.InboundNotification {
	return &models.InboundNotification{
		TimestampHeader: strconv.FormatInt(ts.Unix(), 10),
		SignatureHeader: signature.Sign(ts.Unix(), "POST", testNotificationURL, body, key),
		RawBody:         []byte(body),
		ReceivedAt:      receivedAt,
	}
}

func statusChangedBody(reference string, status models.InvoiceStatus) string {
	return `{"type":"invoice_status_changed","data":{"invoice":{"reference":"` + reference + `","status":"` + string(status) + `"}}}`
}
