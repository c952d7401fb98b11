// Package validator runs static safety and consistency checks on a
// statement before execution. It never executes anything and never throws:
// every check contributes to a returned ValidationResult, and all checks
// run even after the first failure.
//
// The validator accepts both compiler output and externally supplied SQL
// (e.g. a hand-edited template), which is why the read-only check exists
// here at all — the compiler alone could never produce a mutating
// statement.
package validator

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/core/schema"
)

// RecommendedPageSize is the limit above which the validator warns about
// likely UI misuse. Warnings never block execution.
const RecommendedPageSize = 500

// forbiddenKeywords are statement-level keywords that mark a statement as
// non-read-only. Matched as whole top-level tokens, never inside string
// literals or quoted identifiers.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"TRUNCATE", "GRANT", "REVOKE", "EXEC", "EXECUTE",
}

// clauseKeywords terminate a FROM-list table reference.
var clauseKeywords = []string{
	"WHERE", "GROUP", "ORDER", "HAVING", "LIMIT", "FETCH", "OFFSET",
	"UNION", "ON", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "JOIN",
}

// Validate checks a compiled statement against the given schema snapshot.
// The result carries the statement's fingerprint so the execution gateway
// can verify the pass covered this exact statement.
func Validate(stmt domain.CompiledStatement, snap *schema.Snapshot) domain.ValidationResult {
	res := ValidateSQL(stmt.SQL, stmt.Dialect, snap)
	res.Fingerprint = stmt.Fingerprint()
	return res
}

// ValidateSQL checks an arbitrary SQL string claimed to be in the given
// dialect. snap may be nil, in which case the schema-consistency check is
// skipped.
func ValidateSQL(sqlText string, d domain.Dialect, snap *schema.Snapshot) domain.ValidationResult {
	var errs, warns []domain.Diagnostic

	if strings.TrimSpace(sqlText) == "" {
		errs = append(errs, domain.Diagnostic{
			Kind:    domain.KindEmptyStatement,
			Message: "statement has no SQL to run",
		})
		return result(errs, warns)
	}

	tokens, lexErr := lexSQL(sqlText)
	if lexErr != nil {
		errs = append(errs, domain.Diagnostic{
			Kind:    domain.KindMalformedSyntax,
			Message: "statement cannot be tokenized: " + lexErr.Error(),
		})
	}

	// Each check is independent; a failed lex degrades the keyword scan to
	// a conservative word scan instead of skipping it.
	errs = append(errs, checkReadOnly(sqlText, tokens, lexErr == nil)...)
	errs = append(errs, checkBalance(tokens)...)
	if snap != nil && lexErr == nil {
		errs = append(errs, checkSchema(tokens, snap)...)
	}
	warns = append(warns, checkLimit(tokens)...)

	return result(errs, warns)
}

// HasForbiddenKeyword is the cheap repeat of the read-only check the
// execution gateway runs as defense in depth.
func HasForbiddenKeyword(sqlText string) (string, bool) {
	tokens, err := lexSQL(sqlText)
	diags := checkReadOnly(sqlText, tokens, err == nil)
	if len(diags) == 0 {
		return "", false
	}
	kind := string(diags[0].Kind)
	return strings.TrimPrefix(kind, "forbidden_keyword:"), true
}

func result(errs, warns []domain.Diagnostic) domain.ValidationResult {
	return domain.ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}

// checkReadOnly rejects statement-level mutating keywords. With a usable
// token stream only bare identifier tokens are inspected, so keywords
// inside strings or quoted identifiers never match. When tokenization
// failed the raw text is word-scanned instead — over-rejecting malformed
// input beats under-rejecting it.
func checkReadOnly(sqlText string, tokens []token, lexed bool) []domain.Diagnostic {
	seen := make(map[string]bool)
	var diags []domain.Diagnostic

	flag := func(word string) {
		upper := strings.ToUpper(word)
		for _, kw := range forbiddenKeywords {
			if upper == kw && !seen[kw] {
				seen[kw] = true
				diags = append(diags, domain.Diagnostic{
					Kind:    domain.ForbiddenKeywordKind(kw),
					Message: "statement contains forbidden keyword " + kw + "; only read-only queries may run",
				})
			}
		}
	}

	if lexed {
		for _, t := range tokens {
			if t.kind == "Ident" {
				flag(t.value)
			}
		}
		return diags
	}

	words := strings.FieldsFunc(sqlText, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	for _, w := range words {
		flag(w)
	}
	return diags
}

// checkBalance verifies parenthesis nesting. Quote balance is covered by
// the lexer: an unterminated string or quoted identifier fails
// tokenization and is reported as malformed there.
func checkBalance(tokens []token) []domain.Diagnostic {
	depth := 0
	for _, t := range tokens {
		switch t.kind {
		case "LParen":
			depth++
		case "RParen":
			depth--
			if depth < 0 {
				return []domain.Diagnostic{{
					Kind:    domain.KindMalformedSyntax,
					Message: "unbalanced parentheses: unexpected ')'",
				}}
			}
		}
	}
	if depth != 0 {
		return []domain.Diagnostic{{
			Kind:    domain.KindMalformedSyntax,
			Message: "unbalanced parentheses: missing ')'",
		}}
	}
	return nil
}

// checkSchema resolves the FROM list into an alias table and verifies every
// qualified column reference against the snapshot.
func checkSchema(tokens []token, snap *schema.Snapshot) []domain.Diagnostic {
	var diags []domain.Diagnostic
	reported := make(map[string]bool)

	report := func(kind domain.DiagnosticKind, msg string) {
		key := string(kind) + "\x00" + msg
		if !reported[key] {
			reported[key] = true
			diags = append(diags, domain.Diagnostic{Kind: kind, Message: msg})
		}
	}

	aliases := fromAliases(tokens)
	for alias, table := range aliases {
		if !snap.HasTable(table) {
			report(domain.KindUnknownTable, "unknown table "+strconv.Quote(table)+" (alias "+strconv.Quote(alias)+")")
		}
	}

	for i := 0; i+2 < len(tokens); i++ {
		if tokens[i+1].kind != "Dot" {
			continue
		}
		base, ok := identValue(tokens[i])
		if !ok {
			continue
		}
		if tokens[i+2].kind == "Star" {
			continue
		}
		column, ok := identValue(tokens[i+2])
		if !ok {
			continue
		}

		table, aliased := aliases[base]
		if !aliased {
			if !snap.HasTable(base) {
				report(domain.KindUnknownTable, "unknown table "+strconv.Quote(base))
				continue
			}
			table = base
		}
		if !snap.HasTable(table) {
			continue // already reported via the alias pass
		}
		if !snap.HasColumn(table, column) {
			report(domain.KindUnknownColumn, "unknown column "+strconv.Quote(column)+" on table "+strconv.Quote(table))
		}
	}

	return diags
}

// fromAliases extracts alias → table pairs from FROM and JOIN clauses.
// Aliases default to the table name when absent.
func fromAliases(tokens []token) map[string]string {
	aliases := make(map[string]string)

	isClauseKeyword := func(t token) bool {
		for _, kw := range clauseKeywords {
			if isKeyword(t, kw) {
				return true
			}
		}
		return false
	}

	i := 0
	for i < len(tokens) {
		if !isKeyword(tokens[i], "FROM") && !isKeyword(tokens[i], "JOIN") {
			i++
			continue
		}
		i++
		for i < len(tokens) {
			name, ok := identValue(tokens[i])
			if !ok || isClauseKeyword(tokens[i]) {
				break
			}
			i++
			alias := name
			if i < len(tokens) && isKeyword(tokens[i], "AS") {
				i++
				if i < len(tokens) {
					if a, ok := identValue(tokens[i]); ok {
						alias = a
						i++
					}
				}
			} else if i < len(tokens) && !isClauseKeyword(tokens[i]) {
				if a, ok := identValue(tokens[i]); ok {
					alias = a
					i++
				}
			}
			aliases[alias] = name

			if i < len(tokens) && tokens[i].kind == "Comma" {
				i++
				continue
			}
			break
		}
	}

	return aliases
}

// checkLimit warns when the statement's embedded row limit exceeds the
// recommended page size. Applies to LIMIT n, FETCH FIRST n ROWS ONLY and
// SELECT TOP n forms.
func checkLimit(tokens []token) []domain.Diagnostic {
	for i, t := range tokens {
		if !isKeyword(t, "LIMIT") && !isKeyword(t, "TOP") && !isKeyword(t, "FIRST") {
			continue
		}
		if i+1 >= len(tokens) || tokens[i+1].kind != "Number" {
			continue
		}
		n, err := strconv.Atoi(tokens[i+1].value)
		if err != nil {
			continue
		}
		if n > RecommendedPageSize {
			return []domain.Diagnostic{{
				Kind: domain.KindLargeLimit,
				Message: "row limit " + tokens[i+1].value + " exceeds the recommended page size of " +
					strconv.Itoa(RecommendedPageSize),
			}}
		}
	}
	return nil
}
