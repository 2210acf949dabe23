package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExecute_MaterializesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT cooperative_state, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"cooperative_state", "count"}).
			AddRow("Western Bahr el Ghazal", 2).
			AddRow("Jonglei", 1))

	e := NewExecutor(db, zap.NewNop())
	result, err := e.Execute(context.Background(),
		"SELECT cooperative_state, COUNT(*) FROM cooperative GROUP BY cooperative_state")
	require.NoError(t, err)

	assert.Equal(t, []string{"cooperative_state", "count"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Western Bahr el Ghazal", result.Rows[0]["cooperative_state"])
	assert.False(t, result.Empty())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ByteValuesBecomeStrings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT name").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow([]byte("Wau Farmers Cooperative")))

	e := NewExecutor(db, zap.NewNop())
	result, err := e.Execute(context.Background(), "SELECT name FROM cooperative")
	require.NoError(t, err)
	assert.Equal(t, "Wau Farmers Cooperative", result.Rows[0]["name"])
}

func TestExecute_EmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}))

	e := NewExecutor(db, zap.NewNop())
	result, err := e.Execute(context.Background(), "SELECT COUNT(*) FROM member WHERE state = 'Unity'")
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestExecute_PropagatesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnError(errors.New(`column "member_count" does not exist`))

	e := NewExecutor(db, zap.NewNop())
	_, err = e.Execute(context.Background(), "SELECT member_count FROM cooperative")
	require.Error(t, err)
	assert.Equal(t, FailureUnknownColumn, CategorizeError(err))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureCategory
	}{
		{
			name: "pg undefined column code",
			err:  &pgconn.PgError{Code: "42703", Message: "column does not exist"},
			want: FailureUnknownColumn,
		},
		{
			name: "pg undefined table code",
			err:  &pgconn.PgError{Code: "42P01", Message: "relation does not exist"},
			want: FailureMissingTable,
		},
		{
			name: "column message fallback",
			err:  errors.New(`ERROR: column "gender_x" does not exist`),
			want: FailureUnknownColumn,
		},
		{
			name: "relation message fallback",
			err:  errors.New(`ERROR: relation "memberz" does not exist`),
			want: FailureMissingTable,
		},
		{
			name: "generic failure",
			err:  errors.New("syntax error at or near GROUP"),
			want: FailureGeneric,
		},
		{
			name: "nil",
			err:  nil,
			want: FailureGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeError(tt.err))
		})
	}
}
