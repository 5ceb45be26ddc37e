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

func TestIncidentRepositoryCreateAndListPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO incident_reports")).WillReturnResult(sqlmock.NewResult(1, 1))
	report := &models.IncidentReport{Title: "Flooding on Purok 3", CreatedBy: "staff-1"}
	require.NoError(t, repo.Create(context.Background(), report))
	require.Equal(t, models.IncidentStatusRecorded, report.Status)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "location", "status", "reporting_officer_id",
		"reporting_officer_name", "remarks", "created_by", "created_by_name", "created_at", "updated_at", "resolved_at"}).
		AddRow(report.ID, "Flooding on Purok 3", "", "Purok 3", "Recorded", nil, nil, nil, "staff-1", "Ana", now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.status IN ($1, $2)")).
		WithArgs(models.IncidentStatusRecorded, models.IncidentStatusMonitoring).
		WillReturnRows(rows)

	reports, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryUpdateStatusTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE incident_reports")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatusTx(context.Background(), db, UpdateIncidentStatusParams{
		ID: "inc-1", From: models.IncidentStatusRecorded, To: models.IncidentStatusMonitoring, UpdatedAt: time.Now(),
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}
