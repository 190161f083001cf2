package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const lifecycleQueueName = "order.lifecycle"

// Publisher publishes order lifecycle events to RabbitMQ.  An empty
// URL disables publishing: Publish becomes a no-op so the broker stays
// optional in development.
type Publisher struct {
	url string
}

// NewPublisher constructs a Publisher for the given broker URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Publish sends one event to the order.lifecycle queue.  It never
// panics; any error is logged and returned so the caller can ignore
// it without interrupting the request flow.  Messages are marked as
// persistent.
func (p *Publisher) Publish(ctx context.Context, event OrderLifecycleEvent) error {
	if p == nil || p.url == "" {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent).  Durable so messages
	// survive broker restarts.
	if _, err := ch.QueueDeclare(
		lifecycleQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                 // default exchange
		lifecycleQueueName, // routing key = queue name
		false,              // mandatory
		false,              // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
