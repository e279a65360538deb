package model

import "time"

// Catalog event types.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventLinked   = "linked"
	EventUnlinked = "unlinked"
)

// Catalog entity names used in events and logs.
const (
	EntityMovie      = "movie"
	EntityCategory   = "category"
	EntityActor      = "actor"
	EntityMovieActor = "movie_actor"
)

// CatalogEvent is published after a successful catalog mutation. It
// carries identifiers only; consumers read current state from the store
// when they need more.
type CatalogEvent struct {
	Type       string    `json:"type"`
	Entity     string    `json:"entity"`
	EntityID   string    `json:"entity_id,omitempty"`
	MovieID    string    `json:"movie_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditRecord is a CatalogEvent as stored in the `catalog_audit` table.
type AuditRecord struct {
	ID         uint64       `json:"id"`          // catalog_audit.id
	Event      CatalogEvent `json:"event"`       // remaining catalog_audit columns
	ReceivedAt time.Time    `json:"received_at"` // catalog_audit.received_at
}
