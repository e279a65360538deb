// Package queue carries catalog events over RabbitMQ: a publisher used by
// the API and a consumer that hands each event to an audit sink.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/movie-billboard/internal/model"
)

// CatalogQueue is the durable queue catalog events are routed to.
const CatalogQueue = "catalog.events"

var errInvalidEvent = errors.New("invalid catalog event")

// encode builds a persistent JSON message for ev.
func encode(ev model.CatalogEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}, nil
}

// decode parses a message body. Events without a type or an entity are
// rejected.
func decode(body []byte) (model.CatalogEvent, error) {
	var ev model.CatalogEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.Entity == "" {
		return ev, fmt.Errorf("%w: type and entity are required", errInvalidEvent)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev, nil
}
