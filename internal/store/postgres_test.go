package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresKV_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM kv WHERE key = \$1`).
		WithArgs(KeyWatchlist).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`[{"id":"1"}]`)))

	kv := NewPostgresFromPool(mock)
	v, err := kv.Get(context.Background(), KeyWatchlist)

	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKV_GetAbsentKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM kv WHERE key = \$1`).
		WithArgs("absent").
		WillReturnError(pgx.ErrNoRows)

	kv := NewPostgresFromPool(mock)
	v, err := kv.Get(context.Background(), "absent")

	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKV_Set(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO kv`).
		WithArgs(KeySignals, []byte(`[]`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	kv := NewPostgresFromPool(mock)
	err = kv.Set(context.Background(), KeySignals, []byte(`[]`))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKV_GetQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM kv WHERE key = \$1`).
		WithArgs("k").
		WillReturnError(assert.AnError)

	kv := NewPostgresFromPool(mock)
	_, err = kv.Get(context.Background(), "k")

	assert.Error(t, err)
}
