package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/queryscope/queryscope/internal/core/query/domain"
)

// ErrTemplateNotFound is returned when a template id does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// SQLTemplateStore stores templates in the engine's local metadata
// database (a SQLite file by default, but any database/sql handle works).
type SQLTemplateStore struct {
	db *sql.DB
}

// NewSQLTemplateStore creates a store over the given database.
func NewSQLTemplateStore(db *sql.DB) *SQLTemplateStore {
	return &SQLTemplateStore{db: db}
}

// EnsureSchema creates the template table if missing. Idempotent.
func (s *SQLTemplateStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS query_templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			query_spec TEXT NOT NULL,
			sql_text TEXT NOT NULL DEFAULT '',
			connection_id TEXT NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create template table: %w", err)
	}
	return nil
}

// Save inserts or updates a template.
func (s *SQLTemplateStore) Save(ctx context.Context, t *Template) (int64, error) {
	specJSON, err := serializeSpec(t.Spec)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	if t.ID > 0 {
		_, err := s.db.ExecContext(ctx, `
			UPDATE query_templates
			SET name = ?, description = ?, query_spec = ?, sql_text = ?,
			    connection_id = ?, updated_at = ?
			WHERE id = ?
		`, t.Name, t.Description, specJSON, t.SQL, t.ConnectionID, now, t.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update template %d: %w", t.ID, err)
		}
		t.UpdatedAt = now
		return t.ID, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO query_templates
			(name, description, query_spec, sql_text, connection_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Name, t.Description, specJSON, t.SQL, t.ConnectionID, t.CreatedBy, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get template id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return id, nil
}

// Get retrieves a template by id.
func (s *SQLTemplateStore) Get(ctx context.Context, id int64) (*Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, query_spec, sql_text, connection_id, created_by, created_at, updated_at
		FROM query_templates
		WHERE id = ?
	`, id)

	t, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %d: %w", id, ErrTemplateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template %d: %w", id, err)
	}
	return t, nil
}

// List retrieves all templates, newest first.
func (s *SQLTemplateStore) List(ctx context.Context) ([]*Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, query_spec, sql_text, connection_id, created_by, created_at, updated_at
		FROM query_templates
		ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Delete removes a template.
func (s *SQLTemplateStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM query_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("template %d: %w", id, ErrTemplateNotFound)
	}
	return nil
}

func scanTemplate(scan func(...any) error) (*Template, error) {
	var t Template
	var specJSON string
	if err := scan(&t.ID, &t.Name, &t.Description, &specJSON, &t.SQL,
		&t.ConnectionID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	spec, err := deserializeSpec(specJSON)
	if err != nil {
		return nil, err
	}
	t.Spec = spec
	return &t, nil
}

// serializeSpec serializes a QuerySpec to JSON for storage.
func serializeSpec(spec domain.QuerySpec) (string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("failed to serialize query spec: %w", err)
	}
	return string(data), nil
}

// deserializeSpec deserializes a stored QuerySpec.
func deserializeSpec(jsonStr string) (domain.QuerySpec, error) {
	var spec domain.QuerySpec
	if err := json.Unmarshal([]byte(jsonStr), &spec); err != nil {
		return domain.QuerySpec{}, fmt.Errorf("failed to deserialize query spec: %w", err)
	}
	return spec, nil
}

var _ TemplateStore = (*SQLTemplateStore)(nil)
