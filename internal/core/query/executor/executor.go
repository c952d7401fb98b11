// Package executor is the execution gateway: it runs a validated,
// parameterized statement against a pooled connection inside a read-only
// transaction, with a hard row cap and a wall-clock timeout, and returns a
// bounded tabular result or a structured failure.
//
// Execution is the only operation in the engine that blocks on I/O.
// Callers invoke it off their edit path; compilation and validation of the
// next edit are never blocked by an in-flight execution. Cancellation is
// cooperative through the context.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/core/query/validator"
	"github.com/queryscope/queryscope/internal/debug"
)

// Timeout bounds. The default applies when the caller passes zero; the
// ceiling applies no matter what the caller asks for.
const (
	DefaultTimeout = 30 * time.Second
	MaxTimeout     = 120 * time.Second
)

// Options tune one execution.
type Options struct {
	// RowLimit caps returned rows. Clamped to domain.MaxRowLimit; zero
	// means the cap itself.
	RowLimit int
	// Timeout is the wall-clock budget. Zero means DefaultTimeout; values
	// above MaxTimeout are clamped down.
	Timeout time.Duration
}

// PoolProvider supplies the pooled connection for a connection id.
// Implemented by the connection registry; tests inject fakes.
type PoolProvider interface {
	Pool(ctx context.Context, connectionID string) (*sql.DB, domain.Dialect, error)
}

// Gateway executes statements.
type Gateway struct {
	pools PoolProvider
}

// New creates a gateway over the given pools.
func New(pools PoolProvider) *Gateway {
	return &Gateway{pools: pools}
}

// Execute runs a validated statement. The validation result must be a
// successful pass whose fingerprint matches stmt exactly; anything else is
// rejected as NotValidated. A cheap repeat of the read-only keyword check
// runs regardless — the gateway never trusts the caller alone.
//
// The row cap is enforced at the fetch layer independently of whatever
// LIMIT clause the SQL carries, so a hand-edited template that removed or
// inflated its limit is still bounded.
func (g *Gateway) Execute(ctx context.Context, connectionID string, stmt domain.CompiledStatement, validation domain.ValidationResult, opts Options) (*domain.QueryResult, error) {
	if stmt.Empty() {
		return nil, failure(connectionID, ErrNotValidated, "statement is empty")
	}
	if !validation.IsValid {
		return nil, failure(connectionID, ErrNotValidated, "validation reported errors")
	}
	if validation.Fingerprint != stmt.Fingerprint() {
		return nil, failure(connectionID, ErrNotValidated, "validation does not cover this statement")
	}
	if kw, found := validator.HasForbiddenKeyword(stmt.SQL); found {
		return nil, failure(connectionID, ErrNotValidated, "statement contains forbidden keyword "+kw)
	}

	rowLimit := opts.RowLimit
	if rowLimit <= 0 || rowLimit > domain.MaxRowLimit {
		rowLimit = domain.MaxRowLimit
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, _, err := g.pools.Pool(ctx, connectionID)
	if err != nil {
		return nil, failure(connectionID, ErrPoolExhausted, err.Error())
	}

	// Read-only at the session level, layered on top of whatever the
	// connection's own configuration says.
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, g.mapError(ctx, connectionID, err)
	}
	defer tx.Rollback() // nolint:errcheck // read-only, nothing to commit

	debug.Debug("executing statement",
		"connection", connectionID,
		"dialect", stmt.Dialect,
		"params", len(stmt.Params))

	start := time.Now()
	rows, err := tx.QueryContext(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, g.mapError(ctx, connectionID, err)
	}
	defer rows.Close()

	result, err := collectRows(rows, rowLimit)
	if err != nil {
		return nil, g.mapError(ctx, connectionID, err)
	}
	result.Duration = time.Since(start)

	debug.Debug("statement finished",
		"connection", connectionID,
		"rows", result.RowCount,
		"truncated", result.Truncated,
		"duration", result.Duration)

	return result, nil
}

// mapError distinguishes timeouts from generic driver failures so callers
// can choose a retry strategy.
func (g *Gateway) mapError(ctx context.Context, connectionID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure(connectionID, ErrTimeout, "")
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return failure(connectionID, ErrTimeout, "execution canceled")
	}
	return failure(connectionID, ErrExecution, err.Error())
}

// collectRows drains up to rowLimit rows in order, then probes for one more
// to learn whether the result was truncated.
func collectRows(rows *sql.Rows, rowLimit int) (*domain.QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &domain.QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if len(result.Rows) >= rowLimit {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
