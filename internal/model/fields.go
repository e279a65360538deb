package model

// Entity is implemented by every row type stored in the catalog.
type Entity interface {
	Key() string
}

// Fields is a partial set of columns for an update, keyed by column name.
type Fields map[string]any

// serverAssigned lists the columns the store owns. They are never sent
// in an update body.
var serverAssigned = []string{"id", "created_at"}

// Writable returns a copy of f without the server-assigned columns.
func (f Fields) Writable() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	for _, k := range serverAssigned {
		delete(out, k)
	}
	return out
}

func (f Fields) setString(column string, v *string) {
	if v != nil {
		f[column] = *v
	}
}
