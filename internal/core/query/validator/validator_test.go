package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscope/queryscope/internal/core/query/compiler"
	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/core/query/validator"
	"github.com/queryscope/queryscope/internal/core/schema"
)

func testSnapshot() *schema.Snapshot {
	return &schema.Snapshot{
		Tables: []schema.Table{
			{
				Name: "users",
				Columns: []schema.Column{
					{Name: "id", Type: "integer"},
					{Name: "name", Type: "text"},
					{Name: "email", Type: "text", Nullable: true},
				},
			},
			{
				Name: "orders",
				Columns: []schema.Column{
					{Name: "id", Type: "integer"},
					{Name: "user_id", Type: "integer"},
					{Name: "total", Type: "numeric"},
				},
			},
		},
		Views: []schema.View{{Name: "active_users"}},
	}
}

func kinds(diags []domain.Diagnostic) []domain.DiagnosticKind {
	out := make([]domain.DiagnosticKind, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestValidateRejectsMutatingStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want domain.DiagnosticKind
	}{
		{name: "drop", sql: "DROP TABLE users", want: domain.ForbiddenKeywordKind("DROP")},
		{name: "lowercase delete", sql: "delete from users where id = 1", want: domain.ForbiddenKeywordKind("DELETE")},
		{name: "mixed case update", sql: "Update users SET name = 'x'", want: domain.ForbiddenKeywordKind("UPDATE")},
		{name: "insert", sql: "INSERT INTO users (id) VALUES (1)", want: domain.ForbiddenKeywordKind("INSERT")},
		{name: "truncate", sql: "TRUNCATE users", want: domain.ForbiddenKeywordKind("TRUNCATE")},
		{name: "exec", sql: "EXEC sp_help", want: domain.ForbiddenKeywordKind("EXEC")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validator.ValidateSQL(tt.sql, domain.Postgres, nil)
			assert.False(t, res.IsValid)
			assert.Contains(t, kinds(res.Errors), tt.want)
		})
	}
}

func TestValidateKeywordInsideStringLiteralAllowed(t *testing.T) {
	res := validator.ValidateSQL(
		`SELECT "name" FROM "users" WHERE "name" = 'DROP TABLE users'`,
		domain.Postgres, nil)

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestValidateKeywordInsideQuotedIdentifierAllowed(t *testing.T) {
	res := validator.ValidateSQL(`SELECT "delete" FROM "audit_log"`, domain.Postgres, nil)

	assert.True(t, res.IsValid)
}

func TestValidateEmptyStatement(t *testing.T) {
	for _, sqlText := range []string{"", "   ", "\n\t"} {
		res := validator.ValidateSQL(sqlText, domain.Postgres, nil)
		assert.False(t, res.IsValid)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, domain.KindEmptyStatement, res.Errors[0].Kind)
	}
}

func TestValidateUnbalancedParens(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "missing close", sql: "SELECT * FROM users WHERE id IN ($1, $2"},
		{name: "stray close", sql: "SELECT * FROM users WHERE id = $1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validator.ValidateSQL(tt.sql, domain.Postgres, nil)
			assert.False(t, res.IsValid)
			assert.Contains(t, kinds(res.Errors), domain.KindMalformedSyntax)
		})
	}
}

func TestValidateUnterminatedString(t *testing.T) {
	res := validator.ValidateSQL("SELECT * FROM users WHERE name = 'broken", domain.Postgres, nil)

	assert.False(t, res.IsValid)
	assert.Contains(t, kinds(res.Errors), domain.KindMalformedSyntax)
}

func TestValidateSchemaConsistency(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name    string
		sql     string
		valid   bool
		errKind domain.DiagnosticKind
	}{
		{
			name:  "known table and columns",
			sql:   `SELECT "u"."id", "u"."name" FROM "users" AS "u" WHERE "u"."id" > $1`,
			valid: true,
		},
		{
			name:    "unknown table",
			sql:     `SELECT * FROM "customers"`,
			valid:   false,
			errKind: domain.KindUnknownTable,
		},
		{
			name:    "unknown column",
			sql:     `SELECT "u"."nickname" FROM "users" AS "u"`,
			valid:   false,
			errKind: domain.KindUnknownColumn,
		},
		{
			name:  "view accepts any column",
			sql:   `SELECT "a"."whatever" FROM "active_users" AS "a"`,
			valid: true,
		},
		{
			name:  "alias star skipped",
			sql:   `SELECT "u".* FROM "users" AS "u"`,
			valid: true,
		},
		{
			name:  "bare table name as qualifier",
			sql:   `SELECT "users"."email" FROM "users"`,
			valid: true,
		},
		{
			name:  "multi table from list",
			sql:   `SELECT "u"."name", "o"."total" FROM "users" AS "u", "orders" AS "o" WHERE "o"."user_id" = "u"."id"`,
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validator.ValidateSQL(tt.sql, domain.Postgres, snap)
			assert.Equal(t, tt.valid, res.IsValid, "errors: %v", res.Errors)
			if !tt.valid {
				assert.Contains(t, kinds(res.Errors), tt.errKind)
			}
		})
	}
}

func TestValidateSchemaSkippedWithoutSnapshot(t *testing.T) {
	res := validator.ValidateSQL(`SELECT * FROM "no_such_table"`, domain.Postgres, nil)

	assert.True(t, res.IsValid)
}

func TestValidateLargeLimitWarns(t *testing.T) {
	res := validator.ValidateSQL("SELECT * FROM users LIMIT 800", domain.Postgres, nil)

	assert.True(t, res.IsValid, "warnings must not affect validity")
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.KindLargeLimit, res.Warnings[0].Kind)

	res = validator.ValidateSQL("SELECT * FROM users LIMIT 500", domain.Postgres, nil)
	assert.Empty(t, res.Warnings)

	res = validator.ValidateSQL("SELECT TOP 900 * FROM users", domain.SQLServer, nil)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.KindLargeLimit, res.Warnings[0].Kind)
}

func TestValidateAllChecksRun(t *testing.T) {
	// A statement that is mutating, references an unknown table and is
	// unbalanced must report all three problems, not just the first.
	res := validator.ValidateSQL("DELETE FROM nowhere WHERE (id = 1", domain.Postgres, testSnapshot())

	assert.False(t, res.IsValid)
	got := kinds(res.Errors)
	assert.Contains(t, got, domain.ForbiddenKeywordKind("DELETE"))
	assert.Contains(t, got, domain.KindMalformedSyntax)
}

func TestValidateBindsFingerprint(t *testing.T) {
	stmt := compiler.New(domain.Postgres).Compile(domain.QuerySpec{
		Tables:  []domain.TableRef{{Name: "users", Alias: "u"}},
		Columns: []domain.ColumnRef{domain.Wildcard},
	})
	require.False(t, stmt.Empty())

	res := validator.Validate(stmt, testSnapshot())
	assert.True(t, res.IsValid)
	assert.Equal(t, stmt.Fingerprint(), res.Fingerprint)
}

func TestValidateCompilerOutputEndToEnd(t *testing.T) {
	spec := domain.QuerySpec{
		Tables:  []domain.TableRef{{Name: "users", Alias: "u"}},
		Columns: []domain.ColumnRef{{Table: "u", Column: "id"}, {Table: "u", Column: "name"}},
		Where: []domain.WhereCondition{
			{Field: domain.ColumnRef{Table: "u", Column: "id"}, Operator: domain.Gt, Value: 10},
		},
		RowLimit: 50,
	}

	for _, d := range []domain.Dialect{domain.Postgres, domain.MySQL, domain.SQLite, domain.SQLServer} {
		t.Run(string(d), func(t *testing.T) {
			stmt := compiler.New(d).Compile(spec)
			res := validator.Validate(stmt, testSnapshot())
			assert.True(t, res.IsValid, "errors: %v", res.Errors)
		})
	}
}

func TestHasForbiddenKeyword(t *testing.T) {
	kw, found := validator.HasForbiddenKeyword("drop table users")
	assert.True(t, found)
	assert.Equal(t, "DROP", kw)

	_, found = validator.HasForbiddenKeyword(`SELECT * FROM "users"`)
	assert.False(t, found)

	_, found = validator.HasForbiddenKeyword(`SELECT 'INSERT' FROM "users"`)
	assert.False(t, found)
}

func TestValidateDeduplicatesKeywordFindings(t *testing.T) {
	res := validator.ValidateSQL("DROP TABLE a; DROP TABLE b", domain.Postgres, nil)

	count := 0
	for _, k := range kinds(res.Errors) {
		if k == domain.ForbiddenKeywordKind("DROP") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestValidatePlaceholderStylesTokenize(t *testing.T) {
	tests := []struct {
		dialect domain.Dialect
		sql     string
	}{
		{domain.Postgres, "SELECT * FROM users WHERE id = $1 AND name = $2"},
		{domain.MySQL, "SELECT * FROM users WHERE id = ? AND name = ?"},
		{domain.Oracle, "SELECT * FROM users WHERE id = :1 AND name = :2"},
		{domain.SQLServer, "SELECT * FROM users WHERE id = @p1 AND name = @p2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			res := validator.ValidateSQL(tt.sql, tt.dialect, nil)
			assert.True(t, res.IsValid, "errors: %v", res.Errors)
		})
	}
}

func TestValidateCommentsIgnored(t *testing.T) {
	res := validator.ValidateSQL(
		"SELECT * FROM users -- drop is just a word here\n/* DELETE too */ WHERE id = $1",
		domain.Postgres, nil)

	assert.True(t, res.IsValid, "errors: %v", res.Errors)
}
