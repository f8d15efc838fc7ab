// Package events publishes order lifecycle events to RabbitMQ. Publication is
// best-effort and optional; the nop publisher is used when no broker is
// configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/clove/commerce-core/internal/model"
)

const orderQueueName = "orders"

type Publisher interface {
	OrderCreated(ctx context.Context, ev model.OrderEvent) error
}

type amqpPublisher struct{ ch *amqp.Channel }

// NewAMQP declares the order queue and returns a publisher bound to it.
func NewAMQP(ch *amqp.Channel) (Publisher, error) {
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare order queue: %w", err)
	}
	return &amqpPublisher{ch: ch}, nil
}

func (p *amqpPublisher) OrderCreated(ctx context.Context, ev model.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

type nopPublisher struct{}

func NewNop() Publisher { return nopPublisher{} }

func (nopPublisher) OrderCreated(context.Context, model.OrderEvent) error { return nil }
