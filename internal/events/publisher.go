package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"lightbnb/server/internal/models"
)

const (
	TypeReservationCreated = "reservation.created"

	dateLayout = "2006-01-02"
)

// ReservationEvent is the message published when a booking is stored.
type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID int64     `json:"reservation_id"`
	PropertyID    int64     `json:"property_id"`
	GuestID       int64     `json:"guest_id"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewReservationCreated describes r as a reservation.created event.
func NewReservationCreated(r *models.Reservation, now time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          TypeReservationCreated,
		ReservationID: r.ID,
		PropertyID:    r.PropertyID,
		GuestID:       r.GuestID,
		StartDate:     r.StartDate.UTC().Format(dateLayout),
		EndDate:       r.EndDate.UTC().Format(dateLayout),
		OccurredAt:    now.UTC(),
	}
}

type Publisher interface {
	PublishReservation(ctx context.Context, event ReservationEvent) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReservation(context.Context, ReservationEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// AMQPPublisher publishes events as persistent JSON messages on a durable
// queue.
type AMQPPublisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	mu        sync.Mutex
	logger    *logrus.Logger
}

// NewAMQPPublisher connects to the broker at url and declares queueName.
func NewAMQPPublisher(url, queueName string, logger *logrus.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logger.WithField("queue", queueName).Info("Publishing reservation events to RabbitMQ")

	return &AMQPPublisher{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
		logger:    logger,
	}, nil
}

func (p *AMQPPublisher) PublishReservation(ctx context.Context, event ReservationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.WithFields(logrus.Fields{
		"type":           event.Type,
		"reservation_id": event.ReservationID,
	}).Debug("Published event")
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to close channel: %w", err)
	}
	return p.conn.Close()
}
