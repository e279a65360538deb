package postgrest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnfiltered is returned when an update or delete is attempted without
// any filter. PostgREST would apply it to every row of the table.
var ErrUnfiltered = errors.New("postgrest: refusing to mutate without a filter")

// Error is a non-success response reported by the store. Code, Details
// and Hint mirror the PostgREST error body; Code is the SQLSTATE or
// PGRST code when the store provides one.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest: %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a store error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == status
}

// IsConflict reports whether the store rejected the request because of a
// constraint (HTTP 409, e.g. a foreign key violation).
func IsConflict(err error) bool {
	return IsStatus(err, http.StatusConflict)
}

// decodeError builds an *Error from a failed response. Bodies that are not
// PostgREST JSON keep their raw text as the message.
func decodeError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	if len(body) > 0 && json.Unmarshal(body, e) == nil && e.Message != "" {
		return e
	}
	e.Message = string(body)
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
