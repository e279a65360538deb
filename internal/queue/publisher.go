package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/metrics"
	"github.com/iliyamo/movie-billboard/internal/model"
)

const (
	// DefaultDialTimeout bounds the TCP dial and AMQP handshake.
	DefaultDialTimeout = 3 * time.Second

	// DefaultRedialCooldown is how long Publish fails fast after a dial failure.
	DefaultRedialCooldown = 15 * time.Second
)

// ErrBrokerUnavailable is returned while the publisher waits out the
// cooldown after a failed dial.
var ErrBrokerUnavailable = errors.New("broker unavailable")

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Publisher sends catalog events to CatalogQueue. The connection is
// opened on the first Publish and reopened after it breaks. Dialing is
// bounded by the caller's context and DialTimeout; after a failed dial
// every Publish returns ErrBrokerUnavailable until RedialCooldown passes.
type Publisher struct {
	url string
	log *zap.Logger

	DialTimeout    time.Duration
	RedialCooldown time.Duration

	dial dialFunc
	now  func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// NewPublisher returns a publisher for the broker at url. No connection
// is made until the first event is published.
func NewPublisher(url string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		url:            url,
		log:            logger.Named("publisher"),
		DialTimeout:    DefaultDialTimeout,
		RedialCooldown: DefaultRedialCooldown,
		dial:           (&net.Dialer{}).DialContext,
		now:            time.Now,
	}
}

// Publish sends ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev model.CatalogEvent) error {
	msg, err := encode(ev)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",           // default exchange
		CatalogQueue, // routing key = queue name
		false,        // mandatory
		false,        // immediate
		msg,
	); err != nil {
		p.reset()
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish: %w", err)
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// channel returns an open channel, dialing and declaring the queue when
// needed. p.mu must be held.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if now := p.now(); now.Before(p.retryAt) {
		return nil, ErrBrokerUnavailable
	}

	conn, err := p.connect(ctx)
	if err != nil {
		p.retryAt = p.now().Add(p.RedialCooldown)
		p.log.Warn("rabbitmq dial failed",
			zap.Duration("retry_in", p.RedialCooldown), zap.Error(err))
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(CatalogQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.retryAt = time.Time{}
	p.log.Info("rabbitmq publisher connected", zap.String("queue", CatalogQueue))
	return ch, nil
}

// connect dials the broker within ctx and DialTimeout. The deadline set on
// the socket covers the AMQP handshake; amqp clears it once the
// connection is open.
func (p *Publisher) connect(ctx context.Context) (*amqp.Connection, error) {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			dctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			conn, err := p.dial(dctx, network, addr)
			if err != nil {
				return nil, err
			}
			deadline, _ := dctx.Deadline()
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements the publisher contract without sending anything.
func (NopPublisher) Publish(context.Context, model.CatalogEvent) error { return nil }
