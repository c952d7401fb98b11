package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqliteInspector reads SQLite schema metadata.
type sqliteInspector struct {
	db *sql.DB
}

func (i *sqliteInspector) Inspect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	tables, err := i.inspectTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect tables: %w", err)
	}
	snap.Tables = tables

	views, err := i.inspectViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect views: %w", err)
	}
	snap.Views = views

	return snap, nil
}

func (i *sqliteInspector) inspectTables(ctx context.Context) ([]Table, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var table Table
		if err := rows.Scan(&table.Name); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for idx := range tables {
		columns, err := i.inspectColumns(ctx, tables[idx].Name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect columns for %s: %w", tables[idx].Name, err)
		}
		tables[idx].Columns = columns
	}

	return tables, nil
}

// inspectColumns reads columns via PRAGMA. PRAGMA takes no bind parameters,
// so the table name is embedded after sanitizing embedded quotes.
func (i *sqliteInspector) inspectColumns(ctx context.Context, tableName string) ([]Column, error) {
	safe := strings.ReplaceAll(tableName, `"`, `""`)
	query := fmt.Sprintf(`PRAGMA table_info("%s")`, safe)

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid        int
			name       string
			typ        string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, Column{
			Name:     name,
			Type:     typ,
			Nullable: notNull == 0,
		})
	}

	return columns, rows.Err()
}

func (i *sqliteInspector) inspectViews(ctx context.Context) ([]View, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'view'
		ORDER BY name
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	var views []View
	for rows.Next() {
		var view View
		if err := rows.Scan(&view.Name); err != nil {
			return nil, fmt.Errorf("failed to scan view: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for idx := range views {
		columns, err := i.inspectColumns(ctx, views[idx].Name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect columns for view %s: %w", views[idx].Name, err)
		}
		views[idx].Columns = columns
	}

	return views, nil
}
