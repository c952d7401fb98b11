package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscope/queryscope/internal/core/query/dialect"
	"github.com/queryscope/queryscope/internal/core/query/domain"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		dialect domain.Dialect
		ident   string
		want    string
		wantErr bool
	}{
		{name: "postgres double quotes", dialect: domain.Postgres, ident: "users", want: `"users"`},
		{name: "oracle double quotes", dialect: domain.Oracle, ident: "users", want: `"users"`},
		{name: "sqlite double quotes", dialect: domain.SQLite, ident: "users", want: `"users"`},
		{name: "mysql backticks", dialect: domain.MySQL, ident: "users", want: "`users`"},
		{name: "sqlserver brackets", dialect: domain.SQLServer, ident: "users", want: "[users]"},
		{name: "postgres embedded quote rejected", dialect: domain.Postgres, ident: `us"ers`, wantErr: true},
		{name: "mysql embedded backtick rejected", dialect: domain.MySQL, ident: "us`ers", wantErr: true},
		{name: "sqlserver embedded bracket rejected", dialect: domain.SQLServer, ident: "us]ers", wantErr: true},
		{name: "injection attempt rejected", dialect: domain.Postgres, ident: `id" FROM secrets --`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dialect.QuoteIdentifier(tt.dialect, tt.ident)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$1", dialect.Placeholder(domain.Postgres, 1))
	assert.Equal(t, "$7", dialect.Placeholder(domain.Postgres, 7))
	assert.Equal(t, "?", dialect.Placeholder(domain.MySQL, 3))
	assert.Equal(t, "?", dialect.Placeholder(domain.SQLite, 3))
	assert.Equal(t, ":2", dialect.Placeholder(domain.Oracle, 2))
	assert.Equal(t, "@p4", dialect.Placeholder(domain.SQLServer, 4))
}

func TestLimitPlacement(t *testing.T) {
	tests := []struct {
		dialect    domain.Dialect
		wantPrefix string
		wantSuffix string
	}{
		{domain.Postgres, "", "LIMIT 50"},
		{domain.MySQL, "", "LIMIT 50"},
		{domain.SQLite, "", "LIMIT 50"},
		{domain.Oracle, "", "FETCH FIRST 50 ROWS ONLY"},
		{domain.SQLServer, "TOP 50", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			assert.Equal(t, tt.wantPrefix, dialect.SelectModifier(tt.dialect, 50))
			assert.Equal(t, tt.wantSuffix, dialect.LimitSuffix(tt.dialect, 50))
		})
	}
}

func TestParse(t *testing.T) {
	for alias, want := range map[string]domain.Dialect{
		"postgres":   domain.Postgres,
		"postgresql": domain.Postgres,
		"MySQL":      domain.MySQL,
		"sqlite3":    domain.SQLite,
		"mssql":      domain.SQLServer,
		"oracle":     domain.Oracle,
	} {
		got, err := dialect.Parse(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, want, got)
	}

	_, err := dialect.Parse("dbase")
	assert.Error(t, err)
}

func TestDriverName(t *testing.T) {
	for _, d := range []domain.Dialect{domain.Postgres, domain.MySQL, domain.SQLite} {
		name, err := dialect.DriverName(d)
		require.NoError(t, err)
		assert.NotEmpty(t, name)
	}
	for _, d := range []domain.Dialect{domain.Oracle, domain.SQLServer} {
		_, err := dialect.DriverName(d)
		assert.Error(t, err)
	}
}

func TestSupportsOffset(t *testing.T) {
	assert.True(t, dialect.SupportsOffset(domain.Postgres))
	assert.True(t, dialect.SupportsOffset(domain.MySQL))
	assert.True(t, dialect.SupportsOffset(domain.SQLite))
	assert.False(t, dialect.SupportsOffset(domain.Oracle))
	assert.False(t, dialect.SupportsOffset(domain.SQLServer))
}
