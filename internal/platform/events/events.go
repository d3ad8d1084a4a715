package events

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/crafty-backend/internal/config"
	"github.com/georgemunganga/crafty-backend/internal/modules/order"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published for every committed order change.
type OrderEvent struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	OrderID        string          `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	UserID         string          `json:"user_id"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	Total          decimal.Decimal `json:"total"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// Publisher ships events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// New returns the publisher selected by cfg.Backend.
func New(cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return NopPublisher{}, nil
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	case "amqp", "rabbitmq":
		p, err := NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("events: unknown backend %q", cfg.Backend)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }

// Listener publishes order changes in the background. Broker failures are
// logged and never reach the order engine.
type Listener struct {
	pub     Publisher
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewListener(pub Publisher, timeout time.Duration) *Listener {
	return &Listener{pub: pub, timeout: timeout, now: time.Now}
}

func (l *Listener) OnStatusChange(ctx context.Context, o *order.Order, previous order.Status) {
	e := OrderEvent{
		ID:             uuid.NewString(),
		Type:           TypeOrderStatusChanged,
		OrderID:        o.ID.String(),
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID.String(),
		Status:         string(o.Status),
		PreviousStatus: string(previous),
		Total:          o.Total,
		OccurredAt:     l.now().UTC(),
	}
	if previous == "" {
		e.Type = TypeOrderCreated
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		if err := l.pub.Publish(ctx, e); err != nil {
			log.Printf("[events] publish %s for order %s: %v", e.Type, e.OrderNumber, err)
		}
	}()
}

// Wait blocks until pending publishes have finished.
func (l *Listener) Wait() { l.wg.Wait() }
