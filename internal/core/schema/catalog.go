// Package schema provides table/column metadata for a connection: snapshot
// types, per-engine inspectors, and a cache that only refreshes on request.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/queryscope/queryscope/internal/core/query/domain"
)

// Snapshot is a read-only view of a database's schema. It may be stale;
// consumers ask the Catalog for a refresh explicitly.
type Snapshot struct {
	Tables []Table `json:"tables"`
	Views  []View  `json:"views,omitempty"`
}

// Table describes one table.
type Table struct {
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount *int64   `json:"row_count,omitempty"` // estimate, engine permitting
}

// Column describes one column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// View describes one view. Views are queryable like tables.
type View struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns,omitempty"`
}

// Table returns the named table or view, or nil.
func (s *Snapshot) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// HasTable reports whether the snapshot knows the table or view.
func (s *Snapshot) HasTable(name string) bool {
	if s.Table(name) != nil {
		return true
	}
	for i := range s.Views {
		if s.Views[i].Name == name {
			return true
		}
	}
	return false
}

// HasColumn reports whether the named table has the column. Views are
// checked too; a view with no recorded columns accepts any column rather
// than producing false negatives.
func (s *Snapshot) HasColumn(table, column string) bool {
	if t := s.Table(table); t != nil {
		for _, c := range t.Columns {
			if c.Name == column {
				return true
			}
		}
		return false
	}
	for i := range s.Views {
		if s.Views[i].Name != table {
			continue
		}
		if len(s.Views[i].Columns) == 0 {
			return true
		}
		for _, c := range s.Views[i].Columns {
			if c.Name == column {
				return true
			}
		}
		return false
	}
	return false
}

// Inspector reads a live database schema into a Snapshot.
type Inspector interface {
	Inspect(ctx context.Context) (*Snapshot, error)
}

// NewInspector creates an inspector for the given dialect.
func NewInspector(db *sql.DB, d domain.Dialect) (Inspector, error) {
	switch d {
	case domain.Postgres:
		return &postgresInspector{db: db}, nil
	case domain.MySQL:
		return &mysqlInspector{db: db}, nil
	case domain.SQLite:
		return &sqliteInspector{db: db}, nil
	default:
		return nil, fmt.Errorf("schema inspection is not supported for dialect %q", d)
	}
}

// Opener supplies a pooled connection per connection id. Implemented by the
// connection registry; tests inject fakes.
type Opener interface {
	Pool(ctx context.Context, connectionID string) (*sql.DB, domain.Dialect, error)
}

// Catalog caches one snapshot per connection id. Snapshot serves the cache
// and only fetches on a miss; Refresh always re-fetches.
type Catalog struct {
	opener Opener

	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

// NewCatalog creates a catalog backed by the given opener.
func NewCatalog(opener Opener) *Catalog {
	return &Catalog{
		opener: opener,
		snaps:  make(map[string]*Snapshot),
	}
}

// Snapshot returns the cached snapshot for the connection, fetching it on
// first use.
func (c *Catalog) Snapshot(ctx context.Context, connectionID string) (*Snapshot, error) {
	c.mu.RLock()
	snap, ok := c.snaps[connectionID]
	c.mu.RUnlock()
	if ok {
		return snap, nil
	}
	return c.Refresh(ctx, connectionID)
}

// Refresh re-inspects the connection's schema and replaces the cached
// snapshot.
func (c *Catalog) Refresh(ctx context.Context, connectionID string) (*Snapshot, error) {
	db, d, err := c.opener.Pool(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	inspector, err := NewInspector(db, d)
	if err != nil {
		return nil, err
	}
	snap, err := inspector.Inspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema for connection %q: %w", connectionID, err)
	}

	c.mu.Lock()
	c.snaps[connectionID] = snap
	c.mu.Unlock()
	return snap, nil
}
