package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
	"github.com/noah-isme/barangay-api/pkg/response"
)

type incidentService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateIncidentRequest) (*models.IncidentReport, error)
	Get(ctx context.Context, id string) (*models.IncidentReport, error)
	List(ctx context.Context, query dto.IncidentQuery) ([]models.IncidentReport, *models.Pagination, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*models.IncidentReport, error)
}

// IncidentHandler exposes incident report endpoints.
type IncidentHandler struct {
	service incidentService
}

// NewIncidentHandler builds a new handler.
func NewIncidentHandler(service incidentService) *IncidentHandler {
	return &IncidentHandler{service: service}
}

// Create godoc
// @Summary Record an incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body dto.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	var req dto.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid incident payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List godoc
// @Summary List incident reports
// @Tags Incidents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	query := dto.IncidentQuery{
		Status: statusesFromQuery[models.IncidentStatus](c),
		Search: strings.TrimSpace(c.Query("search")),
	}
	query.Page, query.PageSize = pagingFromQuery(c)

	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get an incident report
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UpdateStatus godoc
// @Summary Move an incident to a new status
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /incidents/{id}/status [patch]
func (h *IncidentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	item, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
