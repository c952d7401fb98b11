// Package connection holds the connection registry and its process-wide
// pools. Pools are keyed by connection id, created lazily on first use and
// torn down by ShutdownAll on application shutdown — explicit lifecycle
// rather than ambient singletons, so the execution gateway stays testable
// with injected pools.
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/queryscope/queryscope/internal/core/query/dialect"
	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/debug"

	// Drivers for the executable dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Default pool sizing when a connection config leaves it unset.
const (
	defaultMaxOpenConns = 5
	defaultMaxIdleConns = 2
)

// Config describes one target connection.
type Config struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Dialect domain.Dialect `json:"dialect"`
	DSN     string         `json:"dsn"`

	// ReadOnly records whether the connection itself is configured
	// read-only. The execution gateway forces a read-only session either
	// way; this flag is informational.
	ReadOnly bool `json:"read_only"`

	MaxOpenConns int `json:"max_open_conns,omitempty"`
	MaxIdleConns int `json:"max_idle_conns,omitempty"`
}

// Registry resolves connection ids and owns their pools.
type Registry struct {
	mu      sync.Mutex
	configs map[string]Config
	pools   map[string]*sql.DB
}

// NewRegistry creates a registry over the given connection configs.
func NewRegistry(configs []Config) *Registry {
	byID := make(map[string]Config, len(configs))
	for _, c := range configs {
		byID[c.ID] = c
	}
	return &Registry{
		configs: byID,
		pools:   make(map[string]*sql.DB),
	}
}

// Resolve returns the config for a connection id.
func (r *Registry) Resolve(id string) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok {
		return Config{}, fmt.Errorf("unknown connection %q", id)
	}
	return cfg, nil
}

// List returns all configs ordered by id.
func (r *Registry) List() []Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Config, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Pool returns the pooled database for a connection id, opening it on
// first use. sql.Open does not dial; connectivity failures surface on
// first query.
func (r *Registry) Pool(_ context.Context, id string) (*sql.DB, domain.Dialect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[id]
	if !ok {
		return nil, "", fmt.Errorf("unknown connection %q", id)
	}
	if db, ok := r.pools[id]; ok {
		return db, cfg.Dialect, nil
	}

	driver, err := dialect.DriverName(cfg.Dialect)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open connection %q: %w", id, err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	debug.Debug("opened connection pool", "connection", id, "dialect", cfg.Dialect, "max_open", maxOpen)

	r.pools[id] = db
	return db, cfg.Dialect, nil
}

// ShutdownAll closes every open pool. Safe to call more than once.
func (r *Registry) ShutdownAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for id, db := range r.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close pool %q: %w", id, err)
		}
		delete(r.pools, id)
	}
	return firstErr
}
