// Package service wires the query engine together: compiler, validator,
// execution gateway, schema catalog, connection registry and template
// store behind one caller-facing surface.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/queryscope/queryscope/internal/core/connection"
	"github.com/queryscope/queryscope/internal/core/query/compiler"
	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/core/query/executor"
	"github.com/queryscope/queryscope/internal/core/query/validator"
	"github.com/queryscope/queryscope/internal/core/schema"
	"github.com/queryscope/queryscope/internal/repository"
)

// ErrNotRunnable is returned by Run when the spec compiled to nothing or
// failed validation; the outcome carries the details.
var ErrNotRunnable = errors.New("statement is not runnable")

// Engine is the query-builder engine. Compile and Validate are pure and
// synchronous — safe to call on every edit; Execute is the only call that
// blocks on I/O.
type Engine struct {
	registry  *connection.Registry
	catalog   *schema.Catalog
	gateway   *executor.Gateway
	templates repository.TemplateStore
}

// NewEngine creates an engine over a connection registry and a template
// store. The catalog and gateway share the registry's pools.
func NewEngine(registry *connection.Registry, templates repository.TemplateStore) *Engine {
	return &Engine{
		registry:  registry,
		catalog:   schema.NewCatalog(registry),
		gateway:   executor.New(registry),
		templates: templates,
	}
}

// Connections lists the configured connections.
func (e *Engine) Connections() []connection.Config {
	return e.registry.List()
}

// Shutdown tears down all connection pools.
func (e *Engine) Shutdown() error {
	return e.registry.ShutdownAll()
}

// Compile compiles a spec for the dialect of the given connection.
func (e *Engine) Compile(spec domain.QuerySpec, connectionID string) (domain.CompiledStatement, error) {
	cfg, err := e.registry.Resolve(connectionID)
	if err != nil {
		return domain.CompiledStatement{}, err
	}
	return compiler.New(cfg.Dialect).Compile(spec), nil
}

// Validate checks a compiled statement against the connection's schema
// snapshot.
func (e *Engine) Validate(ctx context.Context, stmt domain.CompiledStatement, connectionID string) (domain.ValidationResult, error) {
	snap, err := e.catalog.Snapshot(ctx, connectionID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return validator.Validate(stmt, snap), nil
}

// ValidateSQL checks an externally supplied SQL string (e.g. a hand-edited
// template) against the connection's dialect and schema.
func (e *Engine) ValidateSQL(ctx context.Context, sqlText, connectionID string) (domain.ValidationResult, error) {
	cfg, err := e.registry.Resolve(connectionID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	snap, err := e.catalog.Snapshot(ctx, connectionID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return validator.ValidateSQL(sqlText, cfg.Dialect, snap), nil
}

// Execute validates and runs a compiled statement. The gateway re-checks
// the validation fingerprint; this method only sequences the two calls.
func (e *Engine) Execute(ctx context.Context, stmt domain.CompiledStatement, connectionID string, opts executor.Options) (*domain.QueryResult, error) {
	validation, err := e.Validate(ctx, stmt, connectionID)
	if err != nil {
		return nil, err
	}
	if !validation.IsValid {
		return nil, fmt.Errorf("%w: validation failed with %d error(s)", ErrNotRunnable, len(validation.Errors))
	}
	return e.gateway.Execute(ctx, connectionID, stmt, validation, opts)
}

// RunOutcome bundles the artifacts of a full compile-validate-execute
// pass. Result is nil when the pass stopped before execution.
type RunOutcome struct {
	Statement  domain.CompiledStatement
	Validation domain.ValidationResult
	Result     *domain.QueryResult
}

// Run compiles a spec, validates the result and executes it. When the spec
// compiles to nothing or fails validation, the outcome is returned along
// with ErrNotRunnable so callers can surface diagnostics.
func (e *Engine) Run(ctx context.Context, spec domain.QuerySpec, connectionID string, opts executor.Options) (*RunOutcome, error) {
	stmt, err := e.Compile(spec, connectionID)
	if err != nil {
		return nil, err
	}
	outcome := &RunOutcome{Statement: stmt}
	if stmt.Empty() {
		return outcome, ErrNotRunnable
	}

	validation, err := e.Validate(ctx, stmt, connectionID)
	if err != nil {
		return outcome, err
	}
	outcome.Validation = validation
	if !validation.IsValid {
		return outcome, ErrNotRunnable
	}

	if opts.RowLimit <= 0 {
		opts.RowLimit = compiler.EffectiveLimit(spec.RowLimit)
	}
	result, err := e.gateway.Execute(ctx, connectionID, stmt, validation, opts)
	if err != nil {
		return outcome, err
	}
	outcome.Result = result
	return outcome, nil
}

// SaveTemplate persists a named spec for reuse. The compiled SQL is stored
// for display only; loading always recompiles.
func (e *Engine) SaveTemplate(ctx context.Context, name, description string, spec domain.QuerySpec, connectionID, createdBy string) (int64, error) {
	if _, err := e.registry.Resolve(connectionID); err != nil {
		return 0, err
	}
	stmt, err := e.Compile(spec, connectionID)
	if err != nil {
		return 0, err
	}
	return e.templates.Save(ctx, &repository.Template{
		Name:         name,
		Description:  description,
		Spec:         spec,
		SQL:          stmt.SQL,
		ConnectionID: connectionID,
		CreatedBy:    createdBy,
	})
}

// LoadTemplate recovers a stored spec and its connection id.
func (e *Engine) LoadTemplate(ctx context.Context, id int64) (domain.QuerySpec, string, error) {
	t, err := e.templates.Get(ctx, id)
	if err != nil {
		return domain.QuerySpec{}, "", err
	}
	return t.Spec, t.ConnectionID, nil
}

// GetTemplate retrieves a full template record.
func (e *Engine) GetTemplate(ctx context.Context, id int64) (*repository.Template, error) {
	return e.templates.Get(ctx, id)
}

// ListTemplates lists stored templates.
func (e *Engine) ListTemplates(ctx context.Context) ([]*repository.Template, error) {
	return e.templates.List(ctx)
}

// DeleteTemplate removes a stored template.
func (e *Engine) DeleteTemplate(ctx context.Context, id int64) error {
	return e.templates.Delete(ctx, id)
}

// Schema returns the cached schema snapshot for a connection.
func (e *Engine) Schema(ctx context.Context, connectionID string) (*schema.Snapshot, error) {
	return e.catalog.Snapshot(ctx, connectionID)
}

// RefreshSchema re-inspects a connection's schema.
func (e *Engine) RefreshSchema(ctx context.Context, connectionID string) (*schema.Snapshot, error) {
	return e.catalog.Refresh(ctx, connectionID)
}
