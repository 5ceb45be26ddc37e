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

type blotterService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateBlotterRequest) (*models.BlotterCase, error)
	Get(ctx context.Context, id string) (*models.BlotterCase, error)
	List(ctx context.Context, query dto.BlotterQuery) ([]models.BlotterCase, *models.Pagination, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*models.BlotterCase, error)
	AssignOfficial(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignOfficialRequest) (*models.BlotterCase, error)
}

// BlotterHandler exposes blotter case endpoints.
type BlotterHandler struct {
	service blotterService
}

// NewBlotterHandler builds a new handler.
func NewBlotterHandler(service blotterService) *BlotterHandler {
	return &BlotterHandler{service: service}
}

// Create godoc
// @Summary File a blotter case
// @Tags Blotters
// @Accept json
// @Produce json
// @Param payload body dto.CreateBlotterRequest true "Blotter payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /blotters [post]
func (h *BlotterHandler) Create(c *gin.Context) {
	var req dto.CreateBlotterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid blotter payload"))
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
// @Summary List blotter cases
// @Tags Blotters
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param search query string false "Case number or party name"
// @Success 200 {object} response.Envelope
// @Router /blotters [get]
func (h *BlotterHandler) List(c *gin.Context) {
	query := dto.BlotterQuery{
		Status: statusesFromQuery[models.BlotterStatus](c),
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
// @Summary Get a blotter case
// @Tags Blotters
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /blotters/{id} [get]
func (h *BlotterHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UpdateStatus godoc
// @Summary Move a blotter case to a new status
// @Tags Blotters
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /blotters/{id}/status [patch]
func (h *BlotterHandler) UpdateStatus(c *gin.Context) {
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

// Assign godoc
// @Summary Assign a handling official
// @Tags Blotters
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.AssignOfficialRequest true "Official"
// @Success 200 {object} response.Envelope
// @Router /blotters/{id}/assign [post]
func (h *BlotterHandler) Assign(c *gin.Context) {
	var req dto.AssignOfficialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	item, err := h.service.AssignOfficial(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
