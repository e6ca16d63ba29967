// Package introspect connects to a live database and reads its schema into
// the neutral model the resolution pipeline consumes.
//
// Drivers self-register from their packages; importing a driver package for
// its side effects makes it available:
//
//	import _ "github.com/rlch/dbscaf/introspect/postgres"
package introspect

import (
	"context"
	"fmt"
	"sort"

	"github.com/rlch/dbscaf"
)

// Conn couples an introspector with its connection lifetime.
type Conn interface {
	dbscaf.Introspector

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Factory opens a connection for a driver from the loaded configuration.
type Factory func(ctx context.Context, cfg *dbscaf.Config) (Conn, error)

var drivers = make(map[string]Factory)

// Register registers a driver factory by name.
func Register(name string, f Factory) {
	drivers[name] = f
}

// RegisteredDrivers returns the registered driver names, sorted.
func RegisteredDrivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Open connects using the driver the configuration selects.
func Open(ctx context.Context, cfg *dbscaf.Config) (Conn, error) {
	name := cfg.DriverName()
	if name == "" {
		return nil, dbscaf.ErrNoDatabase
	}

	f, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (registered: %v)", dbscaf.ErrUnknownDriver, name, RegisteredDrivers())
	}

	return f(ctx, cfg)
}
