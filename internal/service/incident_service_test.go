package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/internal/repository"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type memoryIncidentStore struct {
	mu    sync.Mutex
	items map[string]models.IncidentReport
}

func (s *memoryIncidentStore) Create(ctx context.Context, report *models.IncidentReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[report.ID] = *report
	return nil
}

func (s *memoryIncidentStore) GetByID(ctx context.Context, id string) (*models.IncidentReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (s *memoryIncidentStore) List(ctx context.Context, filter models.IncidentFilter) ([]models.IncidentReport, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.IncidentReport, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (s *memoryIncidentStore) UpdateStatusTx(ctx context.Context, exec sqlx.ExtContext, params repository.UpdateIncidentStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[params.ID]
	if !ok || item.Status != params.From {
		return sql.ErrNoRows
	}
	item.Status = params.To
	s.items[params.ID] = item
	return nil
}

func newIncidentServiceForTest(items ...models.IncidentReport) (*IncidentService, *memoryIncidentStore, *eventRecorder) {
	store := &memoryIncidentStore{items: make(map[string]models.IncidentReport)}
	for _, item := range items {
		store.items[item.ID] = item
	}
	sink := &eventRecorder{}
	runner := NewTransitionRunner(NewAuthorityGate(&signerLookupStub{}, nil), newFakeTx(), nil, sink, nil, nil)
	runner.now = func() time.Time { return time.Date(2024, 9, 9, 7, 0, 0, 0, time.UTC) }
	officials := officialReaderStub{"off-1": {ID: "off-1", FullName: "Tanod Santos", Active: true}}
	return NewIncidentService(store, officials, runner, nil), store, sink
}

func TestIncidentCreate(t *testing.T) {
	svc, _, sink := newIncidentServiceForTest()

	_, err := svc.Create(context.Background(), staffClaims(), dto.CreateIncidentRequest{Title: " "})
	assert.Equal(t, "required", appErrors.FromError(err).Fields["title"])

	_, err = svc.Create(context.Background(), staffClaims(), dto.CreateIncidentRequest{Title: "Fire", ReportingOfficerID: strPtr("off-404")})
	assert.Equal(t, "exists", appErrors.FromError(err).Fields["reporting_officer_id"])

	report, err := svc.Create(context.Background(), staffClaims(), dto.CreateIncidentRequest{Title: "Fire", Location: "Purok 2", ReportingOfficerID: strPtr("off-1")})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusRecorded, report.Status)
	require.NotNil(t, report.ReportingOfficerName)
	assert.Equal(t, "Tanod Santos", *report.ReportingOfficerName)
	assert.Len(t, sink.all(), 1)
}

func TestIncidentStatusLifecycle(t *testing.T) {
	svc, _, sink := newIncidentServiceForTest(models.IncidentReport{ID: "inc-1", Status: models.IncidentStatusRecorded})

	_, err := svc.UpdateStatus(context.Background(), captainClaims(), "inc-1", dto.UpdateStatusRequest{Status: "Resolved"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.UpdateStatus(context.Background(), captainClaims(), "inc-1", dto.UpdateStatusRequest{Status: "Monitoring"})
	require.NoError(t, err)
	resolved, err := svc.UpdateStatus(context.Background(), captainClaims(), "inc-1", dto.UpdateStatusRequest{Status: "Resolved"})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, "Monitoring", events[1].From)
	assert.Equal(t, "Resolved", events[1].To)
}

func TestIncidentUnknownReport(t *testing.T) {
	svc, _, _ := newIncidentServiceForTest()

	_, err := svc.UpdateStatus(context.Background(), captainClaims(), "missing", dto.UpdateStatusRequest{Status: "Monitoring"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
