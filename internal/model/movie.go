package model

// Movie represents a row in the `movies` table of the catalog store.
// The store assigns ID and CreatedAt; CategoryID references
// categories.id and is not cascaded by the store on delete.
//
// Fields:
//  ID          – opaque primary key assigned by the store.
//  Title       – display title, used as the default sort key.
//  Image       – poster URL (http or https).
//  Description – free text synopsis.
//  CategoryID  – foreign key into categories.
//  CreatedAt   – server timestamp, kept as the raw string the store returns.
type Movie struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Image       string `json:"image"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Key returns the movie's primary key.
func (m Movie) Key() string { return m.ID }

// MovieInput carries the writable columns of a movie. It is the body of
// an insert, so server-assigned fields are not part of it.
type MovieInput struct {
	Title       string `json:"title" validate:"required,min=2"`
	Image       string `json:"image" validate:"required,http_url"`
	Description string `json:"description" validate:"required,min=10"`
	CategoryID  string `json:"category_id" validate:"required"`
}

// Fields converts a full replacement into the column map sent to the store.
func (in MovieInput) Fields() Fields {
	return Fields{
		"title":       in.Title,
		"image":       in.Image,
		"description": in.Description,
		"category_id": in.CategoryID,
	}
}

// MoviePatch is a partial movie update. Nil fields are left untouched.
type MoviePatch struct {
	Title       *string `json:"title" validate:"omitnil,min=2"`
	Image       *string `json:"image" validate:"omitnil,http_url"`
	Description *string `json:"description" validate:"omitnil,min=10"`
	CategoryID  *string `json:"category_id" validate:"omitnil,min=1"`
}

// Fields converts the patch into the column map sent to the store.
func (p MoviePatch) Fields() Fields {
	f := Fields{}
	f.setString("title", p.Title)
	f.setString("image", p.Image)
	f.setString("description", p.Description)
	f.setString("category_id", p.CategoryID)
	return f
}

// MovieDetails is the aggregated, read-only view of a movie: the movie
// row plus its category and the actors joined through movie_actors.
// It is rebuilt from the store on every read and never written back.
type MovieDetails struct {
	Movie
	Category *CategoryRef `json:"category"`
	Actors   []ActorRef   `json:"actors"`
}
