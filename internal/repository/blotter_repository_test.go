package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/models"
)

var blotterRowColumns = []string{"id", "case_number", "complainant_resident_id", "complainant_name", "complainant_label",
	"respondent_resident_id", "respondent_name", "respondent_label", "narrative", "status", "official_assigned_id",
	"official_assigned_name", "remarks", "created_by", "created_by_name", "created_at", "updated_at", "resolved_at"}

func TestBlotterRepositoryListPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlotterRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(blotterRowColumns).
		AddRow("b-1", "BLT-2024-0007", "res-1", nil, "Juan Dela Cruz", nil, "Pedro", "Pedro", "noise", "Open", nil, nil, nil, "staff-1", "Ana", now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.status IN ($1, $2) ORDER BY b.created_at ASC")).
		WithArgs(models.BlotterStatusOpen, models.BlotterStatusOngoing).
		WillReturnRows(rows)

	cases, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 1)
	require.Equal(t, "Pedro", cases[0].RespondentLabel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlotterRepositoryUpdateStatusAndAssign(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlotterRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE blotter_cases")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatusTx(context.Background(), db, UpdateBlotterStatusParams{
		ID: "b-1", From: models.BlotterStatusOpen, To: models.BlotterStatusResolved, UpdatedAt: now, ResolvedAt: &now,
	}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE blotter_cases")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatusTx(context.Background(), db, UpdateBlotterStatusParams{
		ID: "b-1", From: models.BlotterStatusResolved, To: models.BlotterStatusOpen, UpdatedAt: now,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("SET official_assigned_id = $2")).
		WithArgs("b-1", "off-1", now, models.BlotterStatusResolved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AssignOfficial(context.Background(), "b-1", "off-1", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlotterRepositoryCreateTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlotterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blotter_cases")).WillReturnResult(sqlmock.NewResult(1, 1))
	name := "Pedro Penduko"
	resident := "res-1"
	c := &models.BlotterCase{CaseNumber: "BLT-2024-0001", ComplainantResidentID: &resident, RespondentName: &name, Narrative: "noise", CreatedBy: "staff-1"}
	require.NoError(t, repo.CreateTx(context.Background(), db, c))
	require.Equal(t, models.BlotterStatusOpen, c.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
