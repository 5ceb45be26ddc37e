package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type blotterServiceMock struct {
	item       *models.BlotterCase
	err        error
	lastQuery  dto.BlotterQuery
	lastStatus dto.UpdateStatusRequest
	lastAssign dto.AssignOfficialRequest
	lastID     string
}

func (m *blotterServiceMock) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateBlotterRequest) (*models.BlotterCase, error) {
	return m.item, m.err
}

func (m *blotterServiceMock) Get(ctx context.Context, id string) (*models.BlotterCase, error) {
	m.lastID = id
	return m.item, m.err
}

func (m *blotterServiceMock) List(ctx context.Context, query dto.BlotterQuery) ([]models.BlotterCase, *models.Pagination, error) {
	m.lastQuery = query
	return nil, &models.Pagination{Page: 1, PageSize: 20}, m.err
}

func (m *blotterServiceMock) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*models.BlotterCase, error) {
	m.lastID, m.lastStatus = id, req
	return m.item, m.err
}

func (m *blotterServiceMock) AssignOfficial(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignOfficialRequest) (*models.BlotterCase, error) {
	m.lastID, m.lastAssign = id, req
	return m.item, m.err
}

func TestBlotterHandlerCreateValidationError(t *testing.T) {
	fieldErr := appErrors.WithFields(appErrors.ErrValidation, "each party needs exactly one identity", map[string]string{"complainant": "exactly_one"})
	h := NewBlotterHandler(&blotterServiceMock{err: fieldErr})

	c, w := newContext(t, http.MethodPost, "/blotters", dto.CreateBlotterRequest{Narrative: "noise"}, staff())
	h.Create(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "exactly_one", decodeEnvelope(t, w).Errors["complainant"])
}

func TestBlotterHandlerListParsesStatusAndSearch(t *testing.T) {
	mockSvc := &blotterServiceMock{}
	h := NewBlotterHandler(mockSvc)

	c, w := newContext(t, http.MethodGet, "/blotters?status=Open,Ongoing&search=%20BLT-2024%20", nil, captain())
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.BlotterStatus{models.BlotterStatusOpen, models.BlotterStatusOngoing}, mockSvc.lastQuery.Status)
	assert.Equal(t, "BLT-2024", mockSvc.lastQuery.Search)
}

func TestBlotterHandlerUpdateStatus(t *testing.T) {
	mockSvc := &blotterServiceMock{item: &models.BlotterCase{ID: "case-1", Status: models.BlotterStatusOngoing}}
	h := NewBlotterHandler(mockSvc)

	c, w := newContext(t, http.MethodPatch, "/blotters/case-1/status", dto.UpdateStatusRequest{Status: "Ongoing"}, captain())
	withID(c, "case-1")
	h.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "case-1", mockSvc.lastID)
	assert.Equal(t, "Ongoing", mockSvc.lastStatus.Status)
}

func TestBlotterHandlerUpdateStatusFromTerminal(t *testing.T) {
	h := NewBlotterHandler(&blotterServiceMock{err: appErrors.ErrInvalidTransition})

	c, w := newContext(t, http.MethodPatch, "/blotters/case-1/status", dto.UpdateStatusRequest{Status: "Open"}, captain())
	withID(c, "case-1")
	h.UpdateStatus(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBlotterHandlerAssign(t *testing.T) {
	mockSvc := &blotterServiceMock{item: &models.BlotterCase{ID: "case-1"}}
	h := NewBlotterHandler(mockSvc)

	c, w := newContext(t, http.MethodPost, "/blotters/case-1/assign", dto.AssignOfficialRequest{OfficialID: "off-1"}, captain())
	withID(c, "case-1")
	h.Assign(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "off-1", mockSvc.lastAssign.OfficialID)
}
