// Package amqp queues rendered account emails on RabbitMQ so a separate
// worker can deliver them.  Publisher is a gotauth.MessageSender; Relay
// drains the queue into another sender, normally an SMTPSender.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	ga "github.com/gotmoney/gotauth"
)

// DefaultQueue is used when no queue name is configured
const DefaultQueue = "gotauth.mail"

// publishTimeout bounds a single publish when ctx has no deadline
const publishTimeout = 5 * time.Second

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Publisher sends mail messages to a durable queue as JSON.
type Publisher struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	logger  *slog.Logger
}

// Dial connects to url, opens a channel and declares queue.
func Dial(url, queue string, logger *slog.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}
	logger.Info("mail queue declared", "queue", q.Name, "messages", q.Messages)
	return &Publisher{conn: conn, channel: ch, queue: q.Name, logger: logger}, nil
}

func newPublisher(ch channel, queue string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{channel: ch, queue: queue, logger: logger}
}

// Queue returns the declared queue name.
func (p *Publisher) Queue() string { return p.queue }

// SendMessage publishes msg as a persistent JSON message.
func (p *Publisher) SendMessage(ctx context.Context, msg ga.Message) error {
	publishing, err := encode(msg)
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}
	err = p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish mail for %s: %w", msg.To, err)
	}
	p.logger.DebugContext(ctx, "mail queued", "queue", p.queue, "subject", msg.Subject)
	return nil
}

func encode(msg ga.Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal mail message: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}, nil
}

func decode(body []byte) (ga.Message, error) {
	var msg ga.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, err
	}
	if msg.To == "" {
		return msg, fmt.Errorf("mail message has no recipient")
	}
	return msg, nil
}

// Relay consumes the queue and hands every message to sender until ctx is
// done or the channel closes.  Failed deliveries are requeued; messages
// that do not decode are dropped.
func (p *Publisher) Relay(ctx context.Context, sender ga.MessageSender) error {
	deliveries, err := p.channel.Consume(
		p.queue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}
	p.logger.Info("relaying mail queue", "queue", p.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				p.logger.Info("mail queue channel closed")
				return nil
			}
			p.handle(ctx, d, sender)
		}
	}
}

func (p *Publisher) handle(ctx context.Context, d amqp.Delivery, sender ga.MessageSender) {
	msg, err := decode(d.Body)
	if err != nil {
		p.logger.ErrorContext(ctx, "dropping undecodable mail message", "err", err)
		if err := d.Nack(false, false); err != nil {
			p.logger.ErrorContext(ctx, "error nacking message", "err", err)
		}
		return
	}
	if err := sender.SendMessage(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "mail delivery failed, requeueing", "subject", msg.Subject, "err", err)
		if err := d.Nack(false, true); err != nil {
			p.logger.ErrorContext(ctx, "error nacking message", "err", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		p.logger.ErrorContext(ctx, "error acking message", "err", err)
	}
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	var first error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			first = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
