package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/metrics"
	"github.com/iliyamo/movie-billboard/internal/model"
)

// AuditSink stores consumed events.
type AuditSink interface {
	Record(ctx context.Context, ev model.CatalogEvent) error
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// StartCatalogConsumer consumes CatalogQueue and hands every event to
// sink. It reconnects with exponential backoff whenever the broker is
// unreachable or the delivery channel closes, and returns ctx.Err() once
// ctx is cancelled. Messages that cannot be decoded or stored are
// rejected without requeue so a poison message cannot loop.
func StartCatalogConsumer(ctx context.Context, url string, sink AuditSink, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("consumer")

	backoff := minBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff // reset after successful connect

		err = consumeLoop(ctx, conn, sink, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink AuditSink, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(CatalogQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(CatalogQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	logger.Info("consuming", zap.String("queue", CatalogQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(ctx, sink, d.Body); err != nil {
				logger.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage decodes body and records it in sink.
func handleMessage(ctx context.Context, sink AuditSink, body []byte) error {
	ev, err := decode(body)
	if err != nil {
		metrics.AuditRecordsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	if err := sink.Record(ctx, ev); err != nil {
		metrics.AuditRecordsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("record %s %s: %w", ev.Entity, ev.Type, err)
	}
	metrics.AuditRecordsTotal.WithLabelValues("ok").Inc()
	return nil
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
