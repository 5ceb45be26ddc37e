package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTransactorMock(t *testing.T) (*Transactor, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTransactor(sqlx.NewDb(db, "sqlmock")), mock
}

func TestTransactorCommitsOnSuccess(t *testing.T) {
	tr, mock := newTransactorMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE certificate_requests")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tr.WithinTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE certificate_requests SET status = 'released'")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorRollsBackOnError(t *testing.T) {
	tr, mock := newTransactorMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("insert failed")
	err := tr.WithinTx(context.Background(), func(tx *sqlx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorRollsBackOnPanic(t *testing.T) {
	tr, mock := newTransactorMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = tr.WithinTx(context.Background(), func(tx *sqlx.Tx) error {
			panic("boom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}
