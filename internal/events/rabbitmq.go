package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

// RabbitMQPublisher sends ticket events to a durable queue on the default exchange.
type RabbitMQPublisher struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
	cb        *gobreaker.CircuitBreaker
}

func NewRabbitMQPublisher(amqpURL, queueName string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitMQPublisher{
		conn:      conn,
		ch:        ch,
		queueName: queueName,
		cb:        NewCircuitBreaker("RabbitMQ-Publisher"),
	}, nil
}

func (r *RabbitMQPublisher) PublishTicketEvent(ctx context.Context, evt TicketEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		log.Printf("rabbitmq: marshal ticket event: %v", err)
		return
	}
	_, err = r.cb.Execute(func() (interface{}, error) {
		return nil, r.ch.PublishWithContext(
			ctx,
			"",          // default exchange
			r.queueName, // routing key == queue name
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    evt.ID,
				Type:         evt.Event,
				Timestamp:    evt.OccurredAt,
				Body:         body,
			},
		)
	})
	if err != nil {
		log.Printf("rabbitmq: publish %s for ticket %d: %v", evt.Event, evt.TicketID, err)
	}
}

func (r *RabbitMQPublisher) Close() error {
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// NewCircuitBreaker opens after three consecutive failures.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("events: circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}
