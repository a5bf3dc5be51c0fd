package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	publishTimeout = 5 * time.Second
	// redialInterval is the minimum wait between reconnect attempts.
	redialInterval = 5 * time.Second
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// publishChannel is the part of *amqp091.Channel the publisher uses.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func() (publishChannel, io.Closer, error)

// AMQPPublisher publishes events to a topic exchange, routed by event type.
// When the broker drops the connection the next Publish dials again, at most
// once per redialInterval.
type AMQPPublisher struct {
	mu       sync.Mutex
	dial     dialFunc
	conn     io.Closer
	channel  publishChannel
	lastDial time.Time
	closed   bool
	now      func() time.Time
	exchange string
	log      logrus.FieldLogger
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, log logrus.FieldLogger) (*AMQPPublisher, error) {
	return newAMQPPublisher(func() (publishChannel, io.Closer, error) {
		return dialExchange(url, exchange)
	}, exchange, log)
}

func newAMQPPublisher(dial dialFunc, exchange string, log logrus.FieldLogger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		dial:     dial,
		now:      time.Now,
		exchange: exchange,
		log:      log,
	}
	channel, conn, err := dial()
	if err != nil {
		return nil, err
	}
	p.channel, p.conn, p.lastDial = channel, conn, p.now()
	return p, nil
}

func dialExchange(url, exchange string) (publishChannel, io.Closer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return channel, conn, nil
}

// openChannel returns a live channel, redialing if the current one is gone.
func (p *AMQPPublisher) openChannel() (publishChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}

	p.releaseLocked()
	if p.now().Sub(p.lastDial) < redialInterval {
		return nil, errors.New("broker connection lost, waiting to redial")
	}
	p.lastDial = p.now()

	channel, conn, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("redial broker: %w", err)
	}
	p.channel, p.conn = channel, conn
	p.log.WithField("exchange", p.exchange).Info("reconnected to event broker")
	return channel, nil
}

// releaseLocked closes the current channel and connection. p.mu must be held.
func (p *AMQPPublisher) releaseLocked() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Publish sends one persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	channel, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		p.exchange,         // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.log.WithFields(logrus.Fields{
		"type":     event.Type,
		"user_id":  event.UserID,
		"exchange": p.exchange,
	}).Debug("published ledger event")
	return nil
}

// Close releases the channel and connection. Later publishes fail.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var err error
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}
