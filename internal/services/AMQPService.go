// This file contains the implementation of AMQPService. This service publishes user lifecycle events
// (registered, updated, removed) to an AMQP 0.9.1 message broker.
//
// Events are published to a durable topic exchange with the event type as routing key, so consumers can bind
// queues to "user.*" or to a single event type. The service reconnects lazily: if the connection or channel has
// been closed, the next Publish dials again before sending.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aptlist/users/internal/log"
)

const connectTimeout = 15 * time.Second

type AMQPService struct {
	url        string
	exchange   string
	connection *amqp.Connection
	channel    *amqp.Channel
	logger     *log.Logger
	// guards connection and channel; amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

// NewAMQPService connects to the broker at url and declares the events exchange.
func NewAMQPService(url, exchange string, logger *log.Logger) (*AMQPService, error) {
	service := &AMQPService{
		url:      url,
		exchange: exchange,
		logger:   logger,
	}

	if err := service.connect(); err != nil {
		return nil, err
	}
	return service, nil
}

// connect establishes a connection to the AMQP message broker and declares the exchange
func (s *AMQPService) connect() error {
	deadline := time.Now().Add(connectTimeout)
	var err error

	for time.Now().Before(deadline) {
		s.connection, err = amqp.Dial(s.url)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	s.channel, err = s.connection.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	err = s.channel.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", s.exchange, err)
	}

	s.logger.Infof("Connected to RabbitMQ, publishing to exchange %s", s.exchange)
	return nil
}

// ensureConnection ensures that the AMQP connection and channel are open
func (s *AMQPService) ensureConnection() error {
	if s.connection != nil && !s.connection.IsClosed() && s.channel != nil && !s.channel.IsClosed() {
		return nil
	}

	s.logger.Info("Reconnecting to RabbitMQ...")
	return s.connect()
}

// Publish sends event to the exchange, routed by its type.
func (s *AMQPService) Publish(ctx context.Context, event Event) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnection(); err != nil {
		return fmt.Errorf("failed to ensure connection: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, s.exchange, string(event.Type), false, false, msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Shutdown closes the channel and connection
func (s *AMQPService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Shutting down AMQP service...")
	if s.channel != nil {
		s.channel.Close()
	}
	if s.connection != nil {
		s.connection.Close()
	}
	s.logger.Info("AMQP service shut down")
}

func encodeEvent(event Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	}, nil
}
