package executor_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/core/query/executor"
)

// fakePools serves one mocked *sql.DB for every connection id, or an error.
type fakePools struct {
	db      *sql.DB
	dialect domain.Dialect
	err     error
}

func (f *fakePools) Pool(_ context.Context, _ string) (*sql.DB, domain.Dialect, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.db, f.dialect, nil
}

func newMockGateway(t *testing.T) (*executor.Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return executor.New(&fakePools{db: db, dialect: domain.Postgres}), mock
}

func validatedStatement(sqlText string, params ...any) (domain.CompiledStatement, domain.ValidationResult) {
	stmt := domain.CompiledStatement{SQL: sqlText, Params: params, Dialect: domain.Postgres}
	validation := domain.ValidationResult{IsValid: true, Fingerprint: stmt.Fingerprint()}
	return stmt, validation
}

func TestExecuteReturnsRows(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT "id", "name" FROM "users" LIMIT 100`)

	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "ada").
			AddRow(int64(2), "grace"))
	mock.ExpectRollback()

	result, err := gw.Execute(context.Background(), "primary", stmt, validation, executor.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.False(t, result.Truncated)
	assert.Equal(t, []any{int64(1), "ada"}, result.Rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteBindsParameters(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(
		`SELECT "id" FROM "users" WHERE "id" > $1 LIMIT 50`, int64(10))

	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectRollback()

	result, err := gw.Execute(context.Background(), "primary", stmt, validation, executor.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteRollsBackAfterRead(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT 1`)

	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))
	mock.ExpectRollback()

	_, err := gw.Execute(context.Background(), "primary", stmt, validation, executor.Options{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteTruncatesAtRowLimit(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT "id" FROM "events"`)

	rows := sqlmock.NewRows([]string{"id"})
	for i := 0; i < 5; i++ {
		rows.AddRow(int64(i))
	}
	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).WillReturnRows(rows)
	mock.ExpectRollback()

	result, err := gw.Execute(context.Background(), "primary", stmt, validation,
		executor.Options{RowLimit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
	assert.Len(t, result.Rows, 3)
	assert.True(t, result.Truncated)
}

func TestExecuteRowLimitClampedToCap(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT "id" FROM "events"`)

	rows := sqlmock.NewRows([]string{"id"})
	for i := 0; i < domain.MaxRowLimit+50; i++ {
		rows.AddRow(int64(i))
	}
	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).WillReturnRows(rows)
	mock.ExpectRollback()

	result, err := gw.Execute(context.Background(), "primary", stmt, validation,
		executor.Options{RowLimit: 50000})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxRowLimit, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestExecuteConvertsBytesToStrings(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT "name" FROM "users"`)

	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow([]byte("ada")))
	mock.ExpectRollback()

	result, err := gw.Execute(context.Background(), "primary", stmt, validation, executor.Options{})
	require.NoError(t, err)
	assert.Equal(t, "ada", result.Rows[0][0])
}

func TestExecuteRejectsUnvalidatedStatements(t *testing.T) {
	gw, _ := newMockGateway(t)
	stmt := domain.CompiledStatement{SQL: `SELECT 1`, Dialect: domain.Postgres}

	tests := []struct {
		name       string
		stmt       domain.CompiledStatement
		validation domain.ValidationResult
	}{
		{
			name:       "no validation at all",
			stmt:       stmt,
			validation: domain.ValidationResult{},
		},
		{
			name: "validation reported errors",
			stmt: stmt,
			validation: domain.ValidationResult{
				IsValid:     false,
				Errors:      []domain.Diagnostic{{Kind: domain.KindUnknownTable}},
				Fingerprint: stmt.Fingerprint(),
			},
		},
		{
			name:       "fingerprint for a different statement",
			stmt:       stmt,
			validation: domain.ValidationResult{IsValid: true, Fingerprint: "deadbeef"},
		},
		{
			name:       "empty statement",
			stmt:       domain.CompiledStatement{Dialect: domain.Postgres},
			validation: domain.ValidationResult{IsValid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gw.Execute(context.Background(), "primary", tt.stmt, tt.validation, executor.Options{})
			require.Error(t, err)
			assert.True(t, executor.IsNotValidated(err))
		})
	}
}

func TestExecuteFingerprintTracksParamChanges(t *testing.T) {
	gw, _ := newMockGateway(t)

	stmt, validation := validatedStatement(`SELECT "id" FROM "users" WHERE "id" > $1`, int64(10))
	stmt.Params = []any{int64(11)} // edited after validation

	_, err := gw.Execute(context.Background(), "primary", stmt, validation, executor.Options{})
	require.Error(t, err)
	assert.True(t, executor.IsNotValidated(err))
}

func TestExecuteForbiddenKeywordBelt(t *testing.T) {
	gw, _ := newMockGateway(t)

	// A forged validation pass must not get a mutating statement through.
	stmt := domain.CompiledStatement{SQL: `DELETE FROM "users"`, Dialect: domain.Postgres}
	validation := domain.ValidationResult{IsValid: true, Fingerprint: stmt.Fingerprint()}

	_, err := gw.Execute(context.Background(), "primary", stmt, validation, executor.Options{})
	require.Error(t, err)
	assert.True(t, executor.IsNotValidated(err))
}

func TestExecutePoolFailure(t *testing.T) {
	gw := executor.New(&fakePools{err: fmt.Errorf("no such connection")})
	stmt, validation := validatedStatement(`SELECT 1`)

	_, err := gw.Execute(context.Background(), "missing", stmt, validation, executor.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, executor.ErrPoolExhausted))

	var f *executor.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "missing", f.ConnectionID)
}

func TestExecuteTimeout(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT "id" FROM "slow"`)

	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := gw.Execute(context.Background(), "primary", stmt, validation,
		executor.Options{Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, executor.IsTimeout(err))
}

func TestExecuteDriverErrorWrapped(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT "id" FROM "users" WHERE "id" = $1`, int64(42))

	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).WithArgs(int64(42)).
		WillReturnError(fmt.Errorf(`relation "users" does not exist`))
	mock.ExpectRollback()

	_, err := gw.Execute(context.Background(), "primary", stmt, validation, executor.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, executor.ErrExecution))
	assert.Contains(t, err.Error(), "does not exist")
	// Bound values stay out of error text.
	assert.NotContains(t, err.Error(), "42")
}

func TestExecuteCanceledContext(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT "id" FROM "slow"`)

	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := gw.Execute(ctx, "primary", stmt, validation, executor.Options{})
	require.Error(t, err)
	assert.True(t, executor.IsTimeout(err))
}

func TestExecuteEmptyResult(t *testing.T) {
	gw, mock := newMockGateway(t)
	stmt, validation := validatedStatement(`SELECT "id" FROM "users" WHERE "id" < $1`, int64(0))

	mock.ExpectBegin()
	mock.ExpectQuery(stmt.SQL).WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	result, err := gw.Execute(context.Background(), "primary", stmt, validation, executor.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
	assert.NotNil(t, result.Rows)
	assert.False(t, result.Truncated)
}
