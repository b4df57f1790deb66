package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/brandsync/reconciler/internal/db"
	"github.com/brandsync/reconciler/internal/plan"
)

// DefaultTable holds one JSON document per entity
const DefaultTable = "entities"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// SQLStore keeps registry documents as JSON in a table with an id and a doc column
type SQLStore struct {
	conn  *db.Connection
	table string
}

// NewSQLStore wraps an open connection
func NewSQLStore(conn *db.Connection, table string) (*SQLStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLStore{conn: conn, table: table}, nil
}

// OpenSQLStore connects and wraps the connection
func OpenSQLStore(ctx context.Context, opts db.Options, table string) (*SQLStore, error) {
	conn, err := db.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStore(conn, table)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the documents table if it does not exist
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		doc %s NOT NULL
	)`, s.table, s.conn.Dialect.DocumentType())

	if _, err := s.conn.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

// Insert stores new documents, used for seeding
func (s *SQLStore) Insert(ctx context.Context, docs ...Document) error {
	d := s.conn.Dialect
	query := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (%s, %s)", s.table, d.Placeholder(1), d.Placeholder(2))

	tx, err := s.conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		data, err := json.Marshal(doc.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, doc.ID, string(data)); err != nil {
			return fmt.Errorf("failed to insert %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// ListDocuments reads every document ordered by ID
func (s *SQLStore) ListDocuments(ctx context.Context) ([]Document, error) {
	query := fmt.Sprintf("SELECT id, %s FROM %s ORDER BY id", s.conn.Dialect.DocumentColumn("doc"), s.table)

	rows, err := s.conn.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id  string
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}

	return docs, rows.Err()
}

// ApplyEntity reads, updates and writes one document inside a single transaction
func (s *SQLStore) ApplyEntity(ctx context.Context, entityID string, mutations []plan.Mutation) error {
	d := s.conn.Dialect

	tx, err := s.conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s%s",
		d.DocumentColumn("doc"), s.table, d.Placeholder(1), d.LockClause())
	if err := tx.QueryRowContext(ctx, query, entityID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
		}
		return fmt.Errorf("failed to read document: %w", err)
	}

	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	data, err := json.Marshal(plan.ApplyTo(fields, mutations))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	update := fmt.Sprintf("UPDATE %s SET doc = %s WHERE id = %s", s.table, d.Placeholder(1), d.Placeholder(2))
	if _, err := tx.ExecContext(ctx, update, string(data), entityID); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	return tx.Commit()
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.conn.Close()
}
