// Package repository defines data-access interfaces and their SQL-backed
// implementations for the engine's own metadata.
package repository

import (
	"context"
	"time"

	"github.com/queryscope/queryscope/internal/core/query/domain"
)

// Template is a named, persisted QuerySpec bound to a connection. The
// stored SQL is the last compiled form, informational only — templates are
// always recompiled before execution.
type Template struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Spec         domain.QuerySpec `json:"query_spec"`
	SQL          string           `json:"sql,omitempty"`
	ConnectionID string           `json:"connection_id"`
	CreatedBy    string           `json:"created_by,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TemplateStore persists query templates.
type TemplateStore interface {
	// Save inserts the template (ID zero) or updates it (ID set) and
	// returns its id.
	Save(ctx context.Context, t *Template) (int64, error)

	// Get retrieves a template by id.
	Get(ctx context.Context, id int64) (*Template, error)

	// List retrieves all templates, newest first.
	List(ctx context.Context) ([]*Template, error)

	// Delete removes a template.
	Delete(ctx context.Context, id int64) error
}
