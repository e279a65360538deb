package model

// Actor represents a row in the `actors` table. Actors are attached to
// movies through the movie_actors join table.
type Actor struct {
	ID        string `json:"id"`                   // actors.id
	Name      string `json:"name"`                 // actors.name
	CreatedAt string `json:"created_at,omitempty"` // actors.created_at
}

// Key returns the actor's primary key.
func (a Actor) Key() string { return a.ID }

// ActorInput is the insert body for an actor.
type ActorInput struct {
	Name string `json:"name" validate:"required,min=2"`
}

// Fields converts a full replacement into the column map sent to the store.
func (in ActorInput) Fields() Fields { return Fields{"name": in.Name} }

// ActorPatch is a partial actor update.
type ActorPatch struct {
	Name *string `json:"name" validate:"omitnil,min=2"`
}

// Fields converts the patch into the column map sent to the store.
func (p ActorPatch) Fields() Fields {
	f := Fields{}
	f.setString("name", p.Name)
	return f
}

// ActorRef is the embedded projection of an actor (id and name only).
type ActorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
