package model

// MovieActor is one row of the `movie_actors` join table and expresses a
// single movie-actor association. The store does not enforce uniqueness
// of (MovieID, ActorID), so duplicates can exist.
//
// Fields:
//  ID        – primary key of the association row.
//  MovieID   – references movies.id.
//  ActorID   – references actors.id.
//  CreatedAt – server timestamp.
type MovieActor struct {
	ID        string `json:"id"`
	MovieID   string `json:"movie_id"`
	ActorID   string `json:"actor_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Key returns the association's primary key.
func (ma MovieActor) Key() string { return ma.ID }

// MovieActorInput is the insert body for a join row.
type MovieActorInput struct {
	MovieID string `json:"movie_id"`
	ActorID string `json:"actor_id"`
}
