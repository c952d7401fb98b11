// Package dialect encapsulates every syntactic difference between the
// supported SQL engines so the compiler stays dialect-agnostic. Dialects
// form a closed set with exhaustive switches; adding an engine is a
// single-point, compile-time-checked change.
package dialect

import (
	"fmt"
	"strings"

	"github.com/queryscope/queryscope/internal/core/query/domain"
)

// All returns the supported dialects in a stable order.
func All() []domain.Dialect {
	return []domain.Dialect{
		domain.Postgres,
		domain.MySQL,
		domain.SQLite,
		domain.Oracle,
		domain.SQLServer,
	}
}

// Parse resolves a dialect name, accepting the common aliases drivers use.
func Parse(name string) (domain.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql":
		return domain.Postgres, nil
	case "mysql", "mariadb":
		return domain.MySQL, nil
	case "sqlite", "sqlite3":
		return domain.SQLite, nil
	case "oracle":
		return domain.Oracle, nil
	case "sqlserver", "mssql":
		return domain.SQLServer, nil
	default:
		return "", fmt.Errorf("unknown dialect %q", name)
	}
}

// QuoteIdentifier wraps an identifier in the dialect's quoting characters.
// Identifiers containing the dialect's own quote character are rejected to
// block identifier-based injection; values never travel this path at all.
func QuoteIdentifier(d domain.Dialect, name string) (string, error) {
	switch d {
	case domain.Postgres, domain.Oracle, domain.SQLite:
		if strings.Contains(name, `"`) {
			return "", fmt.Errorf("identifier %q contains a quote character", name)
		}
		return `"` + name + `"`, nil
	case domain.MySQL:
		if strings.Contains(name, "`") {
			return "", fmt.Errorf("identifier %q contains a quote character", name)
		}
		return "`" + name + "`", nil
	case domain.SQLServer:
		if strings.ContainsAny(name, "[]") {
			return "", fmt.Errorf("identifier %q contains a bracket character", name)
		}
		return "[" + name + "]", nil
	default:
		return "", fmt.Errorf("unknown dialect %q", d)
	}
}

// Placeholder returns the positional bind placeholder for the n-th
// parameter (1-based).
func Placeholder(d domain.Dialect, n int) string {
	switch d {
	case domain.Postgres:
		return fmt.Sprintf("$%d", n)
	case domain.Oracle:
		return fmt.Sprintf(":%d", n)
	case domain.SQLServer:
		return fmt.Sprintf("@p%d", n)
	default:
		// MySQL and SQLite bind by position with '?'.
		return "?"
	}
}

// SelectModifier returns the row-limiting fragment that belongs immediately
// after SELECT, or "" when the dialect limits with a trailing clause.
// SQL Server is the only engine here that limits up front: TOP works
// without the ORDER BY that OFFSET/FETCH would require.
func SelectModifier(d domain.Dialect, limit int) string {
	if d == domain.SQLServer && limit > 0 {
		return fmt.Sprintf("TOP %d", limit)
	}
	return ""
}

// LimitSuffix returns the trailing row-limiting clause, or "" when the
// dialect limits after SELECT instead.
func LimitSuffix(d domain.Dialect, limit int) string {
	if limit <= 0 {
		return ""
	}
	switch d {
	case domain.Postgres, domain.MySQL, domain.SQLite:
		return fmt.Sprintf("LIMIT %d", limit)
	case domain.Oracle:
		return fmt.Sprintf("FETCH FIRST %d ROWS ONLY", limit)
	default:
		return ""
	}
}

// SupportsOffset reports whether the dialect can page with a plain OFFSET.
func SupportsOffset(d domain.Dialect) bool {
	switch d {
	case domain.Postgres, domain.MySQL, domain.SQLite:
		return true
	default:
		// Oracle and SQL Server need OFFSET ... FETCH with ORDER BY.
		return false
	}
}

// DriverName maps a dialect to its database/sql driver. Oracle and
// SQL Server compile and validate like the rest but carry no driver in
// this build, so resolving them for execution is an error.
func DriverName(d domain.Dialect) (string, error) {
	switch d {
	case domain.Postgres:
		return "postgres", nil
	case domain.MySQL:
		return "mysql", nil
	case domain.SQLite:
		return "sqlite3", nil
	case domain.Oracle, domain.SQLServer:
		return "", fmt.Errorf("no driver registered for dialect %q", d)
	default:
		return "", fmt.Errorf("unknown dialect %q", d)
	}
}
