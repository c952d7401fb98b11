package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// mysqlInspector reads MySQL schema metadata.
type mysqlInspector struct {
	db *sql.DB
}

func (i *mysqlInspector) Inspect(ctx context.Context) (*Snapshot, error) {
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

func (i *mysqlInspector) inspectTables(ctx context.Context) ([]Table, error) {
	// TABLE_ROWS is an estimate for InnoDB; good enough for a hint.
	query := `
		SELECT TABLE_NAME, COALESCE(TABLE_ROWS, -1)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE()
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
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

func (i *mysqlInspector) inspectColumns(ctx context.Context, tableName string) ([]Column, error) {
	query := `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		  AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
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

func (i *mysqlInspector) inspectViews(ctx context.Context) ([]View, error) {
	query := `
		SELECT TABLE_NAME
		FROM information_schema.VIEWS
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_NAME
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
