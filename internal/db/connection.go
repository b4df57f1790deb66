package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options describes how to reach the registry database
type Options struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DataSourceName builds the DSN. An explicit DSN always wins.
func (o Options) DataSourceName() string {
	if o.DSN != "" {
		return o.DSN
	}

	switch o.Driver {
	case DriverSQLite:
		if o.Name == "" {
			return ":memory:"
		}
		return o.Name
	default:
		sslmode := o.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			o.Host, o.Port, o.User, o.Password, o.Name, sslmode)
	}
}

// Dialect papers over the SQL differences between drivers
type Dialect struct {
	Name string
}

// Placeholder returns the n-th (1-based) bind parameter
func (d Dialect) Placeholder(n int) string {
	if d.Name == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// DocumentType is the column type used to hold JSON documents
func (d Dialect) DocumentType() string {
	if d.Name == DriverPostgres {
		return "JSONB"
	}
	return "TEXT"
}

// DocumentColumn selects a document column as text
func (d Dialect) DocumentColumn(column string) string {
	if d.Name == DriverPostgres {
		return column + "::text"
	}
	return column
}

// LockClause locks selected rows for the rest of the transaction, where supported
func (d Dialect) LockClause() string {
	if d.Name == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// Connection holds the database connection
type Connection struct {
	DB      *sql.DB
	Dialect Dialect
}

// Open creates a new database connection and verifies it
func Open(ctx context.Context, opts Options) (*Connection, error) {
	driver := strings.ToLower(opts.Driver)
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	opts.Driver = driver

	db, err := sql.Open(driver, opts.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	maxOpen, maxIdle := opts.MaxOpenConns, opts.MaxIdleConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	if maxIdle <= 0 {
		maxIdle = 10
	}
	if driver == DriverSQLite {
		// every connection to :memory: is a separate database
		maxOpen, maxIdle = 1, 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	return &Connection{DB: db, Dialect: Dialect{Name: driver}}, nil
}

// Ping checks the connection is still alive
func (c *Connection) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}
