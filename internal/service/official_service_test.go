package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/internal/repository"
	"github.com/noah-isme/barangay-api/pkg/database"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type memoryOfficialStore struct {
	mu     sync.Mutex
	items  map[string]models.Official
	locked []string
}

func newMemoryOfficialStore(items ...models.Official) *memoryOfficialStore {
	s := &memoryOfficialStore{items: make(map[string]models.Official)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *memoryOfficialStore) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[string]models.Official, len(s.items))
	for k, v := range s.items {
		saved[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = saved
	}
}

func (s *memoryOfficialStore) GetByID(ctx context.Context, id string) (*models.Official, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (s *memoryOfficialStore) List(ctx context.Context, filter models.OfficialFilter) ([]models.Official, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Official
	for _, item := range s.items {
		if filter.RoleKey != "" && item.RoleKey != filter.RoleKey {
			continue
		}
		if filter.Active != nil && item.Active != *filter.Active {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *memoryOfficialStore) CreateTx(ctx context.Context, exec sqlx.ExtContext, official *models.Official) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[official.ID] = *official
	return nil
}

func (s *memoryOfficialStore) GetForUpdateTx(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Official, error) {
	return s.GetByID(ctx, id)
}

func (s *memoryOfficialStore) UpdateTx(ctx context.Context, exec sqlx.ExtContext, official *models.Official) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[official.ID]; !ok {
		return sql.ErrNoRows
	}
	s.items[official.ID] = *official
	return nil
}

func (s *memoryOfficialStore) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Active = false
	s.items[id] = item
	return nil
}

func (s *memoryOfficialStore) SetSignature(ctx context.Context, id, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.SignaturePath = &path
	s.items[id] = item
	return nil
}

func (s *memoryOfficialStore) LockRoleKeyTx(ctx context.Context, exec sqlx.ExtContext, roleKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = append(s.locked, roleKey)
	return nil
}

func (s *memoryOfficialStore) CountActiveByRoleTx(ctx context.Context, exec sqlx.ExtContext, roleKey, excludeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, item := range s.items {
		if item.RoleKey == roleKey && item.Active && item.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (s *memoryOfficialStore) activeCount(roleKey string) int {
	n, _ := s.CountActiveByRoleTx(context.Background(), nil, roleKey, "")
	return n
}

func newOfficialServiceForTest(items ...models.Official) (*OfficialService, *memoryOfficialStore) {
	store := newMemoryOfficialStore(items...)
	guard := NewUniquenessGuard(store, []string{"captain", "SECRETARY"})
	return NewOfficialService(store, guard, newFakeTx(store), nil), store
}

func TestOfficialCreateRejectsSecondActiveCaptain(t *testing.T) {
	svc, store := newOfficialServiceForTest(models.Official{ID: "off-1", FullName: "Juan Dela Cruz", RoleKey: "CAPTAIN", Active: true})

	_, err := svc.Create(context.Background(), captainClaims(), dto.CreateOfficialRequest{FullName: "Pedro Reyes", Position: "Punong Barangay", RoleKey: "captain", Active: true})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyHeld))
	assert.Equal(t, 422, appErr.Status)
	assert.Equal(t, 1, store.activeCount("CAPTAIN"))
	assert.Len(t, store.items, 1)

	inactive, err := svc.Create(context.Background(), captainClaims(), dto.CreateOfficialRequest{FullName: "Pedro Reyes", Position: "Punong Barangay", RoleKey: "captain"})
	require.NoError(t, err)
	assert.False(t, inactive.Active)
	assert.Equal(t, "CAPTAIN", inactive.RoleKey)
}

func TestOfficialUpdateActivationSharesGuard(t *testing.T) {
	svc, store := newOfficialServiceForTest(
		models.Official{ID: "off-1", FullName: "Juan Dela Cruz", RoleKey: "CAPTAIN", Active: true},
		models.Official{ID: "off-2", FullName: "Pedro Reyes", RoleKey: "CAPTAIN", Active: false},
	)
	active := true

	_, err := svc.Update(context.Background(), captainClaims(), "off-2", dto.UpdateOfficialRequest{Active: &active})
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyHeld))
	assert.Equal(t, 1, store.activeCount("CAPTAIN"))

	require.NoError(t, svc.Deactivate(context.Background(), captainClaims(), "off-1"))
	updated, err := svc.Update(context.Background(), captainClaims(), "off-2", dto.UpdateOfficialRequest{Active: &active})
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.Equal(t, 1, store.activeCount("CAPTAIN"))

	// Re-saving the current holder must not trip on itself.
	name := "Pedro M. Reyes"
	_, err = svc.Update(context.Background(), captainClaims(), "off-2", dto.UpdateOfficialRequest{FullName: &name})
	require.NoError(t, err)
}

func TestOfficialNonSingletonRolesAllowMany(t *testing.T) {
	svc, store := newOfficialServiceForTest(models.Official{ID: "off-1", RoleKey: "KAGAWAD", Active: true})

	_, err := svc.Create(context.Background(), captainClaims(), dto.CreateOfficialRequest{FullName: "Kagawad Two", Position: "Kagawad", RoleKey: "kagawad", Active: true})
	require.NoError(t, err)
	assert.Equal(t, 2, store.activeCount("KAGAWAD"))
	assert.Empty(t, store.locked)
}

func TestOfficialUploadSignature(t *testing.T) {
	svc, _ := newOfficialServiceForTest(models.Official{ID: "off-1", RoleKey: "CAPTAIN", Active: true})

	official, err := svc.UploadSignature(context.Background(), captainClaims(), "off-1", dto.UploadSignatureRequest{SignaturePath: "signatures/off-1.png"})
	require.NoError(t, err)
	require.NotNil(t, official.SignaturePath)
	assert.Equal(t, "signatures/off-1.png", *official.SignaturePath)

	_, err = svc.UploadSignature(context.Background(), captainClaims(), "off-9", dto.UploadSignatureRequest{SignaturePath: "x.png"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.UploadSignature(context.Background(), staffClaims(), "off-1", dto.UploadSignatureRequest{SignaturePath: "x.png"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestUniquenessGuardLocksBeforeCounting(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	guard := NewUniquenessGuard(repository.NewOfficialRepository(sqlxDB), []string{"CAPTAIN"})
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).WithArgs("CAPTAIN").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM officials")).WithArgs("CAPTAIN", "off-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err = database.NewTransactor(sqlxDB).WithinTx(context.Background(), func(tx *sqlx.Tx) error {
		return guard.AssertSingletonActive(context.Background(), tx, "captain", "off-2")
	})
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyHeld))
	require.NoError(t, mock.ExpectationsWereMet())
}
