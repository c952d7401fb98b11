package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// postgresInspector reads PostgreSQL schema metadata.
type postgresInspector struct {
	db *sql.DB
}

func (i *postgresInspector) Inspect(ctx context.Context) (*Snapshot, error) {
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

func (i *postgresInspector) inspectTables(ctx context.Context) ([]Table, error) {
	// reltuples is a planner estimate, which is all the row-count hint
	// needs to be.
	query := `
		SELECT t.table_name, COALESCE(c.reltuples, -1)::bigint
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
			AND c.relnamespace = 'public'::regnamespace
		WHERE t.table_schema = 'public'
		  AND t.table_type = 'BASE TABLE'
		ORDER BY t.table_name
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var table Table
		var estimate int64
		if err := rows.Scan(&table.Name, &estimate); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		if estimate >= 0 {
			table.RowCount = &estimate
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

func (i *postgresInspector) inspectColumns(ctx context.Context, tableName string) ([]Column, error) {
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := i.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (i *postgresInspector) inspectViews(ctx context.Context) ([]View, error) {
	query := `
		SELECT table_name
		FROM information_schema.views
		WHERE table_schema = 'public'
		ORDER BY table_name
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
