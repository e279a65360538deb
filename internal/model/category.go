package model

// Category represents a row in the `categories` table. Movies reference
// it through movies.category_id.
type Category struct {
	ID        string `json:"id"`                   // categories.id
	Name      string `json:"name"`                 // categories.name
	CreatedAt string `json:"created_at,omitempty"` // categories.created_at
}

// Key returns the category's primary key.
func (c Category) Key() string { return c.ID }

// CategoryInput is the insert body for a category.
type CategoryInput struct {
	Name string `json:"name" validate:"required,min=2"`
}

// Fields converts a full replacement into the column map sent to the store.
func (in CategoryInput) Fields() Fields { return Fields{"name": in.Name} }

// CategoryPatch is a partial category update.
type CategoryPatch struct {
	Name *string `json:"name" validate:"omitnil,min=2"`
}

// Fields converts the patch into the column map sent to the store.
func (p CategoryPatch) Fields() Fields {
	f := Fields{}
	f.setString("name", p.Name)
	return f
}

// CategoryRef is the embedded projection of a category inside
// MovieDetails (id and name only).
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
