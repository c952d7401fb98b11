// Package domain contains the core business entities for the query domain.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// QuerySpec is the engine-agnostic description of a query's shape. It is the
// aggregate root owned by the caller (an editing session or a stored
// template); the engine never retains a reference to it across calls.
type QuerySpec struct {
	Tables   []TableRef       `json:"tables"`
	Columns  []ColumnRef      `json:"columns"`
	Where    []WhereCondition `json:"where_conditions,omitempty"`
	GroupBy  []ColumnRef      `json:"group_by,omitempty"`
	OrderBy  []OrderByClause  `json:"order_by,omitempty"`
	RowLimit int              `json:"row_limit,omitempty"` // 0 means DefaultRowLimit
}

// IsEmpty reports whether the spec has no tables selected and therefore
// compiles to no SQL.
func (s QuerySpec) IsEmpty() bool {
	return len(s.Tables) == 0
}

// Row limit bounds. MaxRowLimit is a hard ceiling enforced again at the
// fetch layer regardless of what the compiled SQL says.
const (
	DefaultRowLimit = 100
	MaxRowLimit     = 1000
)

// TableRef selects a table under an alias. Aliases must be unique within a
// QuerySpec. When more than one table is present the compiler emits a
// cross join (comma-separated FROM list); join predicates, if any, live in
// Where as ordinary conditions.
type TableRef struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// ColumnRef names a column as table_alias.column_name, or the wildcard
// sentinel "*" (which must be the sole selected column).
type ColumnRef struct {
	Table  string `json:"table,omitempty"`
	Column string `json:"column"`
}

// Wildcard is the select-everything sentinel.
var Wildcard = ColumnRef{Column: "*"}

// IsWildcard reports whether the ref is the wildcard sentinel.
func (c ColumnRef) IsWildcard() bool {
	return c.Table == "" && c.Column == "*"
}

// String renders the ref for diagnostics, never for SQL.
func (c ColumnRef) String() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// Operator is a comparison operator in a WHERE condition.
type Operator string

const (
	// Eq checks equality.
	Eq Operator = "eq"
	// Neq checks inequality.
	Neq Operator = "neq"
	// Gt checks greater-than.
	Gt Operator = "gt"
	// Lt checks less-than.
	Lt Operator = "lt"
	// Gte checks greater-or-equal.
	Gte Operator = "gte"
	// Lte checks less-or-equal.
	Lte Operator = "lte"
	// Like performs a SQL LIKE match.
	Like Operator = "like"
	// In checks membership in a value list.
	In Operator = "in"
	// NotIn checks absence from a value list.
	NotIn Operator = "notIn"
	// IsNull checks for NULL; takes no value.
	IsNull Operator = "isNull"
	// IsNotNull checks for NOT NULL; takes no value.
	IsNotNull Operator = "isNotNull"
)

// NeedsValue reports whether the operator requires a bound value.
func (o Operator) NeedsValue() bool {
	return o != IsNull && o != IsNotNull
}

// NeedsList reports whether the operator requires a sequence of values.
func (o Operator) NeedsList() bool {
	return o == In || o == NotIn
}

// LogicOp joins a condition to the one before it.
type LogicOp string

const (
	// And joins with AND.
	And LogicOp = "AND"
	// Or joins with OR.
	Or LogicOp = "OR"
)

// WhereCondition is one element of the flat, left-to-right condition chain.
// The first condition's Logic is ignored; every subsequent condition is
// prefixed by its own Logic. There is no parenthesized grouping.
//
// Value holds a scalar for most operators, a []any for In/NotIn, and must
// be nil for IsNull/IsNotNull.
type WhereCondition struct {
	Field    ColumnRef `json:"field"`
	Operator Operator  `json:"operator"`
	Value    any       `json:"value,omitempty"`
	Logic    LogicOp   `json:"logic,omitempty"`
}

// SortDirection orders an ORDER BY clause.
type SortDirection string

const (
	// Asc sorts ascending.
	Asc SortDirection = "asc"
	// Desc sorts descending.
	Desc SortDirection = "desc"
)

// OrderByClause sorts the result by one column.
type OrderByClause struct {
	Field     ColumnRef     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Dialect identifies a target SQL engine. It is a closed set; the dialect
// package switches exhaustively over it.
type Dialect string

const (
	// Postgres dialect.
	Postgres Dialect = "postgres"
	// MySQL dialect.
	MySQL Dialect = "mysql"
	// SQLite dialect.
	SQLite Dialect = "sqlite"
	// Oracle dialect.
	Oracle Dialect = "oracle"
	// SQLServer dialect.
	SQLServer Dialect = "sqlserver"
)

// DiagnosticKind is a machine-readable diagnostic category.
type DiagnosticKind string

// Compile-time diagnostics. These never abort compilation; the compiler
// degrades to an empty statement carrying them.
const (
	// KindNoTables means the spec has no tables selected; compiling it is
	// a valid "nothing to run yet" state, not an error.
	KindNoTables DiagnosticKind = "no_tables"
	// KindEmptyInList means an In/NotIn condition has no values.
	KindEmptyInList DiagnosticKind = "empty_in_list"
	// KindMissingValue means an operator that needs a value has none.
	KindMissingValue DiagnosticKind = "missing_value"
	// KindUnexpectedValue means IsNull/IsNotNull carried a value.
	KindUnexpectedValue DiagnosticKind = "unexpected_value"
	// KindScalarForIn means In/NotIn was given a non-sequence value.
	KindScalarForIn DiagnosticKind = "scalar_for_in"
	// KindBadWildcard means "*" appeared alongside other columns.
	KindBadWildcard DiagnosticKind = "bad_wildcard"
	// KindDuplicateAlias means two tables share an alias.
	KindDuplicateAlias DiagnosticKind = "duplicate_alias"
	// KindBadIdentifier means an identifier embeds its dialect's quote
	// character and was rejected by the dialect strategy.
	KindBadIdentifier DiagnosticKind = "bad_identifier"
)

// Validation diagnostics.
const (
	// KindUnknownTable means a referenced table is not in the catalog.
	KindUnknownTable DiagnosticKind = "unknown_table"
	// KindUnknownColumn means a referenced column is not on its table.
	KindUnknownColumn DiagnosticKind = "unknown_column"
	// KindMalformedSyntax means unbalanced parentheses or quotes.
	KindMalformedSyntax DiagnosticKind = "malformed_syntax"
	// KindEmptyStatement means there is no SQL to run.
	KindEmptyStatement DiagnosticKind = "empty_statement"
	// KindLargeLimit warns that the effective limit exceeds the
	// recommended page size. Never blocks execution.
	KindLargeLimit DiagnosticKind = "large_limit"
)

// ForbiddenKeywordKind builds the kind for a rejected statement keyword,
// e.g. "forbidden_keyword:DROP".
func ForbiddenKeywordKind(keyword string) DiagnosticKind {
	return DiagnosticKind("forbidden_keyword:" + keyword)
}

// Diagnostic pairs a machine-readable kind with a human-readable message.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// CompiledStatement is parameterized SQL plus its bound values. It is
// produced fresh on every compile and never mutated. An empty SQL string
// with diagnostics is the "nothing to run yet" state.
type CompiledStatement struct {
	SQL         string       `json:"sql"`
	Params      []any        `json:"params"`
	Dialect     Dialect      `json:"dialect"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Empty reports whether there is no SQL to run.
func (s CompiledStatement) Empty() bool {
	return s.SQL == ""
}

// Fingerprint hashes the statement's content so a validation pass can be
// bound to the exact statement it covered. Parameter values participate in
// the hash but are never exposed through it.
func (s CompiledStatement) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d", s.Dialect, s.SQL, len(s.Params))
	for _, p := range s.Params {
		fmt.Fprintf(h, "\x00%T:%v", p, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ValidationResult is the outcome of static statement checks. It is always
// returned, never raised: IsValid is true iff Errors is empty, and warnings
// never affect it. Fingerprint ties the result to the statement it was
// produced for.
type ValidationResult struct {
	IsValid     bool         `json:"is_valid"`
	Errors      []Diagnostic `json:"errors,omitempty"`
	Warnings    []Diagnostic `json:"warnings,omitempty"`
	Fingerprint string       `json:"fingerprint,omitempty"`
}

// QueryResult is a bounded tabular result. Truncated is true iff the engine
// had more rows than the enforced cap returned.
type QueryResult struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	RowCount  int           `json:"row_count"`
	Duration  time.Duration `json:"duration"`
	Truncated bool          `json:"truncated"`
}
