package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/models"
)

var officialRowColumns = []string{"id", "full_name", "position", "role_key", "active", "signature_path", "term_start", "term_end", "created_at", "updated_at"}

func TestOfficialRepositoryGuardQueriesRunInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfficialRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("CAPTAIN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM officials WHERE role_key = $1 AND active = TRUE AND id <> $2")).
		WithArgs("CAPTAIN", "off-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.LockRoleKeyTx(context.Background(), tx, "CAPTAIN"))
	count, err := repo.CountActiveByRoleTx(context.Background(), tx, "CAPTAIN", "off-2")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfficialRepositoryActiveByRoleVacant(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfficialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE role_key = $1 AND active = TRUE")).
		WithArgs("CAPTAIN").
		WillReturnRows(sqlmock.NewRows(officialRowColumns))

	official, err := repo.ActiveByRole(context.Background(), "CAPTAIN")
	require.NoError(t, err)
	require.Nil(t, official)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfficialRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfficialRepository(db)

	now := time.Now()
	active := true
	mock.ExpectQuery(regexp.QuoteMeta("FROM officials WHERE 1=1 AND role_key = $1 AND active = $2 ORDER BY role_key ASC, full_name ASC")).
		WithArgs("CAPTAIN", true).
		WillReturnRows(sqlmock.NewRows(officialRowColumns).AddRow("off-1", "Maria Santos", "Punong Barangay", "CAPTAIN", true, nil, nil, nil, now, now))

	list, err := repo.List(context.Background(), models.OfficialFilter{RoleKey: "captain", Active: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignerRepositoryHasSignature(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSignerRepository(db, NewOfficialRepository(db))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(signature_path, '') FROM officials WHERE id = $1")).
		WithArgs("off-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(""))
	ok, ref, err := repo.HasSignature(context.Background(), "off-1")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, ref)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(signature_path, '') FROM officials WHERE id = $1")).
		WithArgs("off-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("signatures/captain.png"))
	ok, ref, err = repo.HasSignature(context.Background(), "off-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "signatures/captain.png", ref)

	mock.ExpectQuery(regexp.QuoteMeta("FROM barangay_profile")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "municipality", "province", "captain_name", "captain_signature_path"}))
	profile, err := repo.Profile(context.Background())
	require.NoError(t, err)
	require.Nil(t, profile)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).WillReturnResult(sqlmock.NewResult(1, 1))
	n := &models.Notification{EventType: "issued", RecordKind: "certificate", RecordID: "req-42", Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(context.Background(), n))
	require.NotEmpty(t, n.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
