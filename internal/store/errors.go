// Package store owns every database round-trip the booking core performs.
// Sentinel errors let higher layers branch on the failure class without
// inspecting driver errors.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested entity does not exist. Handlers
// translate it into an HTTP 404. Missing coverage rows are NOT a not-found
// condition; an uncovered area reads as an empty leaf set.
var ErrNotFound = errors.New("not found")

// ValidationError rejects an operation before any write because referenced
// entities are missing or input is structurally invalid.
type ValidationError struct {
	Entity string   // "area", "group", "interval", ...
	IDs    []string // offending identifiers, if any
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("validation failed: %s %s: %s", e.Entity, strings.Join(e.IDs, ", "), e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Entity, e.Reason)
}

// IsSerializationFailure reports whether err is a Postgres serialization
// failure (SQLSTATE 40001), the signal that a SERIALIZABLE transaction lost
// the race against a concurrent writer and should be retried.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
