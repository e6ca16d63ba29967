package dbscaf

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .dbscaf.yaml is found.
	ErrConfigNotFound = errors.New("dbscaf: no .dbscaf.yaml found")

	// ErrUnknownDriver is returned when an unknown database driver is requested.
	ErrUnknownDriver = errors.New("dbscaf: unknown driver")

	// ErrNoDatabase is returned when no database connection is configured.
	ErrNoDatabase = errors.New("dbscaf: no database configured")
)

// SchemaError is a fatal schema-consistency violation: column-count mismatch
// on a composite foreign key, duplicate primary keys, or a table filter
// naming a nonexistent table. Generation aborts before any output is written.
type SchemaError struct {
	Table  string
	Column string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema: table %q, column %q: %s", e.Table, e.Column, e.Detail)
	}

	return fmt.Sprintf("schema: table %q: %s", e.Table, e.Detail)
}

// NamingError is a fatal, unresolvable identifier collision: two schema names
// normalize to the same identifier and the deterministic suffix policy cannot
// tell them apart. Both colliding originals are reported.
type NamingError struct {
	Scope  string // entity scope ("" for schema-wide entity names)
	Name   string // the resolved identifier both originals map to
	First  string
	Second string
}

func (e *NamingError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("naming: %q and %q both resolve to entity name %q", e.First, e.Second, e.Name)
	}

	return fmt.Sprintf("naming: %s: %q and %q both resolve to %q", e.Scope, e.First, e.Second, e.Name)
}
