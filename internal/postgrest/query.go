package postgrest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Order is a single sort key in PostgREST form (column.asc / column.desc).
type Order struct {
	Column     string
	Descending bool
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Descending: true} }

// String renders the order as the value of the `order` query parameter.
func (o Order) String() string {
	if o.Descending {
		return o.Column + ".desc"
	}
	return o.Column + ".asc"
}

// ParseOrder parses "column", "column.asc" or "column.desc".
func ParseOrder(s string) (Order, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Order{}, fmt.Errorf("empty order")
	}
	col, dir, hasDir := strings.Cut(s, ".")
	if col == "" {
		return Order{}, fmt.Errorf("invalid order %q", s)
	}
	if !hasDir {
		return Asc(col), nil
	}
	switch strings.ToLower(dir) {
	case "asc":
		return Asc(col), nil
	case "desc":
		return Desc(col), nil
	}
	return Order{}, fmt.Errorf("invalid order direction %q", dir)
}

type filter struct {
	column string
	value  string
}

// Query collects the filter, ordering, projection and limit of one store
// request. The zero value is usable; methods return the receiver so calls
// can be chained.
type Query struct {
	filters []filter
	orders  []Order
	columns string
	limit   int
}

// NewQuery returns an empty query.
func NewQuery() *Query { return &Query{} }

// Eq adds a `column=eq.value` filter.
func (q *Query) Eq(column, value string) *Query {
	q.filters = append(q.filters, filter{column: column, value: value})
	return q
}

// Order appends a sort key.
func (q *Query) Order(o Order) *Query {
	q.orders = append(q.orders, o)
	return q
}

// Select sets the column list, which may include relationship embedding
// such as `*,categories(id,name)`.
func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

// Limit caps the number of returned rows. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Filtered reports whether the query restricts the rows it touches.
func (q *Query) Filtered() bool {
	return q != nil && len(q.filters) > 0
}

// Values returns the query as URL values.
func (q *Query) Values() url.Values {
	v := url.Values{}
	if q == nil {
		return v
	}
	for _, f := range q.filters {
		v.Add(f.column, "eq."+f.value)
	}
	if len(q.orders) > 0 {
		parts := make([]string, len(q.orders))
		for i, o := range q.orders {
			parts[i] = o.String()
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.columns != "" {
		v.Set("select", q.columns)
	}
	if q.limit > 0 {
		v.Set("limit", strconv.Itoa(q.limit))
	}
	return v
}

// Encode renders the query string (without the leading '?').
func (q *Query) Encode() string {
	return q.Values().Encode()
}
