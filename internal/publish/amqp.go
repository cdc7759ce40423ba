package publish

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"transactions/transaction"
)

// Channel is the part of *amqp.Channel the publisher uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends events to a RabbitMQ topic exchange, routed by topic name
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	logger   *zap.Logger
}

var _ transaction.Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects to the broker and declares a durable topic exchange
func DialAMQP(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}

	p, err := NewAMQPPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func NewAMQPPublisher(ch Channel, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{channel: ch, exchange: exchange, logger: logger}, nil
}

func (p *AMQPPublisher) PublishCreated(ctx context.Context, e *transaction.CreatedEvent) error {
	m, err := createdMessage(e)
	if err != nil {
		return err
	}
	return p.publish(ctx, m)
}

func (p *AMQPPublisher) PublishCompleted(ctx context.Context, e *transaction.CompletedEvent) error {
	m, err := completedMessage(e)
	if err != nil {
		return err
	}
	return p.publish(ctx, m)
}

func (p *AMQPPublisher) publish(ctx context.Context, m *message) error {
	err := p.channel.PublishWithContext(ctx, p.exchange, m.topic, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     m.key,
		CorrelationId: m.key,
		Type:          m.topic,
		Timestamp:     time.Now().UTC(),
		Body:          m.body,
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", m.topic, err)
	}
	p.logger.Debug("event published",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", m.topic),
		zap.String("key", m.key),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
