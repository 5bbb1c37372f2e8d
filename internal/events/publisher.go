package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/interfaces"
)

const (
	OrderStateChangedTopic = "order.state.changed"
	InvoiceCreatedSubject  = "sheepy.invoice.created"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

// Publisher sends order state changes to Kafka and invoice creations to NATS.
// Either transport may be nil, in which case its events are dropped.
type Publisher struct {
	kafkaWriter messageWriter
	nc          subjectPublisher
}

func NewPublisher(kafkaWriter messageWriter, nc subjectPublisher) *Publisher {
	return &Publisher{kafkaWriter: kafkaWriter, nc: nc}
}

// NewFromTransports builds a Publisher from optional Kafka and NATS
// connections; a nil connection disables its events.
func NewFromTransports(kafkaWriter *kafka.Writer, nc *nats.Conn) *Publisher {
	p := &Publisher{}
	if kafkaWriter != nil {
		p.kafkaWriter = kafkaWriter
	}
	if nc != nil {
		p.nc = nc
	}
	return p
}

func (p *Publisher) OrderStateChanged(ctx context.Context, event interfaces.OrderStateChangedEvent) error {
	if p.kafkaWriter == nil {
		return nil
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.kafkaWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Reference),
		Value: eventJSON,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", OrderStateChangedTopic, err)
	}
	return nil
}

func (p *Publisher) InvoiceCreated(_ context.Context, event interfaces.InvoiceCreatedEvent) error {
	if p.nc == nil {
		return nil
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.nc.Publish(InvoiceCreatedSubject, eventJSON); err != nil {
		return fmt.Errorf("publish %s: %w", InvoiceCreatedSubject, err)
	}
	return nil
}
