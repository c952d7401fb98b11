// Package compiler turns a QuerySpec into dialect-correct, parameterized
// SQL. Compilation is a pure function: no I/O, and the same spec with the
// same dialect always yields byte-identical SQL and parameters.
//
// Compilation never fails hard for a representable spec. Structural defects
// (no tables, an empty IN list, a missing value) degrade to an empty
// statement carrying diagnostics, so a partially edited spec is always a
// valid "nothing to run yet" state.
//
// Multi-table specs compile to a comma-separated FROM list. The compiler
// does not infer join predicates; callers that want a join place the join
// condition in Where like any other condition.
package compiler

import (
	"fmt"
	"strings"

	"github.com/queryscope/queryscope/internal/core/query/dialect"
	"github.com/queryscope/queryscope/internal/core/query/domain"
)

// operatorSQL maps value-taking operators to their SQL form.
var operatorSQL = map[domain.Operator]string{
	domain.Eq:   "=",
	domain.Neq:  "!=",
	domain.Gt:   ">",
	domain.Lt:   "<",
	domain.Gte:  ">=",
	domain.Lte:  "<=",
	domain.Like: "LIKE",
}

// SQLCompiler compiles QuerySpecs for one dialect.
type SQLCompiler struct {
	dialect domain.Dialect
}

// New creates a compiler for the given dialect.
func New(d domain.Dialect) *SQLCompiler {
	return &SQLCompiler{dialect: d}
}

// Compile compiles a spec to a statement. The returned statement is a fresh
// value; the spec is not retained.
func (c *SQLCompiler) Compile(spec domain.QuerySpec) domain.CompiledStatement {
	stmt := domain.CompiledStatement{Dialect: c.dialect}

	if spec.IsEmpty() {
		stmt.Diagnostics = append(stmt.Diagnostics, domain.Diagnostic{
			Kind:    domain.KindNoTables,
			Message: "no tables selected",
		})
		return stmt
	}

	if diags := checkSpec(spec); len(diags) > 0 {
		stmt.Diagnostics = diags
		return stmt
	}

	var sb strings.Builder
	var params []any
	argIndex := 1

	effectiveLimit := EffectiveLimit(spec.RowLimit)

	sb.WriteString("SELECT")
	if mod := dialect.SelectModifier(c.dialect, effectiveLimit); mod != "" {
		sb.WriteString(" ")
		sb.WriteString(mod)
	}
	sb.WriteString(" ")

	cols, err := c.renderColumns(spec.Columns)
	if err != nil {
		return c.badIdentifier(stmt, err)
	}
	sb.WriteString(cols)

	sb.WriteString(" FROM ")
	from, err := c.renderTables(spec.Tables)
	if err != nil {
		return c.badIdentifier(stmt, err)
	}
	sb.WriteString(from)

	if len(spec.Where) > 0 {
		sb.WriteString(" WHERE ")
		where, whereParams, err := c.renderWhere(spec.Where, &argIndex)
		if err != nil {
			return c.badIdentifier(stmt, err)
		}
		sb.WriteString(where)
		params = append(params, whereParams...)
	}

	if len(spec.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		grouped, err := c.renderColumns(spec.GroupBy)
		if err != nil {
			return c.badIdentifier(stmt, err)
		}
		sb.WriteString(grouped)
	}

	if len(spec.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		ordered, err := c.renderOrderBy(spec.OrderBy)
		if err != nil {
			return c.badIdentifier(stmt, err)
		}
		sb.WriteString(ordered)
	}

	if suffix := dialect.LimitSuffix(c.dialect, effectiveLimit); suffix != "" {
		sb.WriteString(" ")
		sb.WriteString(suffix)
	}

	stmt.SQL = strings.TrimSpace(sb.String())
	stmt.Params = params
	return stmt
}

// EffectiveLimit clamps a requested row limit to [1, MaxRowLimit], applying
// the default when unset.
func EffectiveLimit(requested int) int {
	if requested <= 0 {
		return domain.DefaultRowLimit
	}
	if requested > domain.MaxRowLimit {
		return domain.MaxRowLimit
	}
	return requested
}

// checkSpec collects structural diagnostics that make the spec uncompilable
// as-is. All defects are reported, not just the first.
func checkSpec(spec domain.QuerySpec) []domain.Diagnostic {
	var diags []domain.Diagnostic

	seen := make(map[string]bool, len(spec.Tables))
	for _, t := range spec.Tables {
		alias := t.Alias
		if alias == "" {
			alias = t.Name
		}
		if seen[alias] {
			diags = append(diags, domain.Diagnostic{
				Kind:    domain.KindDuplicateAlias,
				Message: fmt.Sprintf("table alias %q is used more than once", alias),
			})
		}
		seen[alias] = true
	}

	if len(spec.Columns) > 1 {
		for _, col := range spec.Columns {
			if col.IsWildcard() {
				diags = append(diags, domain.Diagnostic{
					Kind:    domain.KindBadWildcard,
					Message: "wildcard column must be the sole selected column",
				})
				break
			}
		}
	}

	for _, cond := range spec.Where {
		switch {
		case cond.Operator.NeedsList():
			values, ok := cond.Value.([]any)
			if !ok {
				diags = append(diags, domain.Diagnostic{
					Kind:    domain.KindScalarForIn,
					Message: fmt.Sprintf("operator %s on %s requires a list of values", cond.Operator, cond.Field),
				})
			} else if len(values) == 0 {
				diags = append(diags, domain.Diagnostic{
					Kind:    domain.KindEmptyInList,
					Message: fmt.Sprintf("operator %s on %s has an empty value list", cond.Operator, cond.Field),
				})
			}
		case cond.Operator.NeedsValue():
			if cond.Value == nil {
				diags = append(diags, domain.Diagnostic{
					Kind:    domain.KindMissingValue,
					Message: fmt.Sprintf("operator %s on %s requires a value", cond.Operator, cond.Field),
				})
			}
		default:
			if cond.Value != nil {
				diags = append(diags, domain.Diagnostic{
					Kind:    domain.KindUnexpectedValue,
					Message: fmt.Sprintf("operator %s on %s takes no value", cond.Operator, cond.Field),
				})
			}
		}
	}

	return diags
}

func (c *SQLCompiler) badIdentifier(stmt domain.CompiledStatement, err error) domain.CompiledStatement {
	return domain.CompiledStatement{
		Dialect: c.dialect,
		Diagnostics: append(stmt.Diagnostics, domain.Diagnostic{
			Kind:    domain.KindBadIdentifier,
			Message: err.Error(),
		}),
	}
}

func (c *SQLCompiler) renderColumns(cols []domain.ColumnRef) (string, error) {
	if len(cols) == 0 {
		return "*", nil
	}
	if len(cols) == 1 && cols[0].IsWildcard() {
		return "*", nil
	}
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		rendered, err := c.renderColumn(col)
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) renderColumn(col domain.ColumnRef) (string, error) {
	name, err := dialect.QuoteIdentifier(c.dialect, col.Column)
	if err != nil {
		return "", err
	}
	if col.Table == "" {
		return name, nil
	}
	table, err := dialect.QuoteIdentifier(c.dialect, col.Table)
	if err != nil {
		return "", err
	}
	return table + "." + name, nil
}

func (c *SQLCompiler) renderTables(tables []domain.TableRef) (string, error) {
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		name, err := dialect.QuoteIdentifier(c.dialect, t.Name)
		if err != nil {
			return "", err
		}
		if t.Alias == "" || t.Alias == t.Name {
			parts = append(parts, name)
			continue
		}
		alias, err := dialect.QuoteIdentifier(c.dialect, t.Alias)
		if err != nil {
			return "", err
		}
		parts = append(parts, name+" AS "+alias)
	}
	return strings.Join(parts, ", "), nil
}

// renderWhere renders the flat condition chain. Condition 0 carries no
// prefix; every later condition is prefixed by its own Logic, evaluated
// strictly left to right with no parenthesization.
func (c *SQLCompiler) renderWhere(conds []domain.WhereCondition, argIndex *int) (string, []any, error) {
	var sb strings.Builder
	var params []any

	for i, cond := range conds {
		if i > 0 {
			logic := cond.Logic
			if logic != domain.Or {
				logic = domain.And
			}
			sb.WriteString(" ")
			sb.WriteString(string(logic))
			sb.WriteString(" ")
		}

		field, err := c.renderColumn(cond.Field)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(field)

		switch cond.Operator {
		case domain.IsNull:
			sb.WriteString(" IS NULL")

		case domain.IsNotNull:
			sb.WriteString(" IS NOT NULL")

		case domain.In, domain.NotIn:
			values := cond.Value.([]any) // checked by checkSpec
			placeholders := make([]string, len(values))
			for j, v := range values {
				placeholders[j] = c.placeholder(argIndex)
				params = append(params, v)
			}
			if cond.Operator == domain.In {
				sb.WriteString(" IN (")
			} else {
				sb.WriteString(" NOT IN (")
			}
			sb.WriteString(strings.Join(placeholders, ", "))
			sb.WriteString(")")

		default:
			// The literal never reaches the SQL text; only a placeholder
			// does, even for numeric- or keyword-looking values.
			sb.WriteString(" ")
			sb.WriteString(operatorSQL[cond.Operator])
			sb.WriteString(" ")
			sb.WriteString(c.placeholder(argIndex))
			params = append(params, cond.Value)
		}
	}

	return sb.String(), params, nil
}

func (c *SQLCompiler) renderOrderBy(clauses []domain.OrderByClause) (string, error) {
	parts := make([]string, 0, len(clauses))
	for _, ob := range clauses {
		field, err := c.renderColumn(ob.Field)
		if err != nil {
			return "", err
		}
		direction := "ASC"
		if ob.Direction == domain.Desc {
			direction = "DESC"
		}
		parts = append(parts, field+" "+direction)
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) placeholder(argIndex *int) string {
	defer func() { *argIndex++ }()
	return dialect.Placeholder(c.dialect, *argIndex)
}
