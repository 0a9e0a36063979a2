package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/gym-server/internal/queue"
)

// EventPublisher delivers user lifecycle events.  Publishing is best
// effort: callers log failures and carry on.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, ev q.UserEvent) error
}

// NopPublisher drops every event.  Used when QUEUE_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) PublishUserEvent(context.Context, q.UserEvent) error { return nil }

// AMQPPublisher publishes events to the user.events queue.  Each call
// dials its own connection so a broker outage never wedges request
// handling on a stale channel.
type AMQPPublisher struct {
	URL     string
	Timeout time.Duration
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Timeout: 3 * time.Second}
}

// PublishUserEvent marshals ev and publishes it as a persistent message.
// Errors are returned wrapped with the failing step.
func (p *AMQPPublisher) PublishUserEvent(ctx context.Context, ev q.UserEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.Timeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.UserEventsQueue, // name
		true,              // durable
		false,             // autoDelete
		false,             // exclusive
		false,             // noWait
		nil,               // args
	); err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.UserEventsQueue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

func publish(ctx context.Context, p EventPublisher, ev q.UserEvent) {
	if p == nil {
		return
	}
	if err := p.PublishUserEvent(ctx, ev); err != nil {
		log.Printf("events: %s for user %d not published: %v", ev.Type, ev.UserID, err)
	}
}
