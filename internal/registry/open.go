package registry

import (
	"context"
	"fmt"

	"github.com/brandsync/reconciler/internal/db"
)

// DriverMemory keeps the registry in memory, seeded from a file
const DriverMemory = "memory"

// Options selects and configures a registry store
type Options struct {
	Driver      string     `mapstructure:"driver"`
	File        string     `mapstructure:"file"`
	Table       string     `mapstructure:"table"`
	NameFields  []string   `mapstructure:"name_fields"`
	FailOnEmpty bool       `mapstructure:"fail_on_empty"`
	Database    db.Options `mapstructure:"database"`
}

// Open returns the store for the configured driver
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverMemory:
		if opts.File == "" {
			return NewMemoryStore(), nil
		}
		return LoadFile(opts.File)

	case db.DriverPostgres, db.DriverSQLite:
		dbOpts := opts.Database
		dbOpts.Driver = opts.Driver
		return OpenSQLStore(ctx, dbOpts, opts.Table)

	default:
		return nil, fmt.Errorf("unknown registry driver %q", opts.Driver)
	}
}
