package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const RoutingStatusChanged = "settlement.status_changed"

type StatusChanged struct {
	SettlementID uuid.UUID `json:"settlement_id"`
	Folio        string    `json:"folio"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	ActorID      uuid.UUID `json:"actor_id"`
	ActorRole    string    `json:"actor_role"`
	NetPayable   string    `json:"net_payable"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends settlement events to a topic exchange. A publisher without a channel
// drops every event, which is how the service runs when no broker is configured.
type Publisher struct {
	mu       sync.Mutex
	ch       Channel
	exchange string
	log      zerolog.Logger
}

func NewPublisher(ch Channel, exchange string, log zerolog.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

func NewNoopPublisher() *Publisher {
	return &Publisher{log: zerolog.Nop()}
}

func (p *Publisher) PublishStatusChanged(ctx context.Context, evt StatusChanged) error {
	if p == nil || p.ch == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", RoutingStatusChanged, err)
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(p.exchange, RoutingStatusChanged, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    evt.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("settlement_id", evt.SettlementID.String()).Msg("publish status change failed")
		return err
	}
	return nil
}

// Dial connects to the broker and declares the settlement exchange. The returned close
// function releases the channel and the connection.
func Dial(url, exchange string, log zerolog.Logger) (*Publisher, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	closeFn := func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return NewPublisher(ch, exchange, log), closeFn, nil
}
