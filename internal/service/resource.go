// Package service implements the catalog's fail-soft CRUD orchestrator.
// Nothing here returns an error to its caller: reads that fail yield an
// empty result, writes that fail yield nil or false, and every failure is
// logged and counted. Callers that need to distinguish "absent" from
// "unreachable" use Lookup.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/metrics"
	"github.com/iliyamo/movie-billboard/internal/model"
	"github.com/iliyamo/movie-billboard/internal/postgrest"
	"github.com/iliyamo/movie-billboard/internal/queue"
	"github.com/iliyamo/movie-billboard/internal/repository"
)

// Publisher receives an event after every successful mutation.
type Publisher interface {
	Publish(ctx context.Context, ev model.CatalogEvent) error
}

// Resource is the CRUD surface of one catalog entity. T is the stored row
// and In the insert body.
type Resource[T model.Entity, In any] struct {
	table  *repository.Table[T]
	entity string
	log    *zap.Logger
	events Publisher
}

func newResource[T model.Entity, In any](table *repository.Table[T], entity string, logger *zap.Logger, events Publisher) *Resource[T, In] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &Resource[T, In]{
		table:  table,
		entity: entity,
		log:    logger.With(zap.String("entity", entity)),
		events: events,
	}
}

// List returns every row ordered by order, or an empty slice on failure.
func (r *Resource[T, In]) List(ctx context.Context, order postgrest.Order) []T {
	rows, err := r.table.List(ctx, order)
	if err != nil {
		r.fail("list", err, zap.String("order", order.String()))
		return []T{}
	}
	return rows
}

// Get returns the row with id, or nil when it does not exist or the store
// could not be read.
func (r *Resource[T, In]) Get(ctx context.Context, id string) *T {
	row, err := r.Lookup(ctx, id)
	if err != nil {
		return nil
	}
	return row
}

// Lookup is Get with the reason for an absent result. The error is
// repository.ErrNotFound when the store answered without a match.
func (r *Resource[T, In]) Lookup(ctx context.Context, id string) (*T, error) {
	row, err := r.table.Find(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		r.log.Debug("row not found", zap.String("id", id))
		return nil, err
	case err != nil:
		r.fail("get", err, zap.String("id", id))
		return nil, err
	}
	return row, nil
}

// Create inserts in and returns the stored row, or nil on failure.
func (r *Resource[T, In]) Create(ctx context.Context, in In) *T {
	row, err := r.table.Insert(ctx, in)
	if err != nil {
		r.fail("create", err)
		return nil
	}
	r.publish(ctx, model.CatalogEvent{Type: model.EventCreated, EntityID: (*row).Key()})
	return row
}

// Update applies fields to the row with id and returns the updated row,
// or nil on failure. id and created_at are never sent to the store.
func (r *Resource[T, In]) Update(ctx context.Context, id string, fields model.Fields) *T {
	row, err := r.table.Update(ctx, id, fields.Writable())
	if err != nil {
		r.fail("update", err, zap.String("id", id))
		return nil
	}
	r.publish(ctx, model.CatalogEvent{Type: model.EventUpdated, EntityID: id})
	return row
}

// Delete removes the row with id and reports whether the store confirmed it.
func (r *Resource[T, In]) Delete(ctx context.Context, id string) bool {
	if err := r.table.Delete(ctx, id); err != nil {
		r.fail("delete", err, zap.String("id", id))
		return false
	}
	r.publish(ctx, model.CatalogEvent{Type: model.EventDeleted, EntityID: id})
	return true
}

func (r *Resource[T, In]) fail(verb string, err error, fields ...zap.Field) {
	op := r.entity + "." + verb
	metrics.CatalogFailuresTotal.WithLabelValues(op).Inc()
	r.log.Error("catalog operation failed", append(fields, zap.String("operation", op), zap.Error(err))...)
}

func (r *Resource[T, In]) publish(ctx context.Context, ev model.CatalogEvent) {
	ev.Entity = r.entity
	publish(ctx, r.events, r.log, ev)
}

// publish stamps and sends ev. A broker failure never changes the result
// of the mutation that produced the event.
func publish(ctx context.Context, events Publisher, logger *zap.Logger, ev model.CatalogEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := events.Publish(ctx, ev); err != nil {
		logger.Warn("publish catalog event failed",
			zap.String("type", ev.Type), zap.String("entity", ev.Entity), zap.Error(err))
	}
}
