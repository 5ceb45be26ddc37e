package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
	"github.com/noah-isme/barangay-api/pkg/response"
)

type certificateService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateCertificateRequest) (*models.CertificateRequest, error)
	Get(ctx context.Context, id string) (*models.CertificateRequest, error)
	List(ctx context.Context, query dto.CertificateQuery) ([]models.CertificateRequest, *models.Pagination, error)
	Approve(ctx context.Context, actor *models.JWTClaims, id string, req dto.ApproveCertificateRequest) (*models.CertificateRequest, error)
	Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.RejectCertificateRequest) (*models.CertificateRequest, error)
	Release(ctx context.Context, actor *models.JWTClaims, id string) (*models.IssuanceResult, error)
	Revoke(ctx context.Context, actor *models.JWTClaims, issuedID string, req dto.RevokeCertificateRequest) (*models.IssuedCertificate, error)
}

type issuedDocuments interface {
	Get(ctx context.Context, id string) (*models.IssuedCertificate, error)
	OpenDocument(ctx context.Context, id string) (*os.File, *models.IssuedCertificate, error)
}

// CertificateHandler exposes certificate request and issuance endpoints.
type CertificateHandler struct {
	service   certificateService
	documents issuedDocuments
}

// NewCertificateHandler builds a new handler.
func NewCertificateHandler(service certificateService, documents issuedDocuments) *CertificateHandler {
	return &CertificateHandler{service: service, documents: documents}
}

// Create godoc
// @Summary File a certificate request
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body dto.CreateCertificateRequest true "Certificate request"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /certificates [post]
func (h *CertificateHandler) Create(c *gin.Context) {
	var req dto.CreateCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid certificate payload"))
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
// @Summary List certificate requests
// @Tags Certificates
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param resident_id query string false "Resident filter"
// @Param type query string false "Certificate type"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	query := dto.CertificateQuery{
		Status:     statusesFromQuery[models.CertificateStatus](c),
		ResidentID: c.Query("resident_id"),
		Type:       strings.TrimSpace(c.Query("type")),
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
// @Summary Get a certificate request
// @Tags Certificates
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Approve godoc
// @Summary Approve a pending certificate request
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ApproveCertificateRequest false "Remarks"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /certificates/{id}/approve [post]
func (h *CertificateHandler) Approve(c *gin.Context) {
	var req dto.ApproveCertificateRequest
	// Remarks are optional; an empty body, chunked or not, approves without them.
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
			return
		}
	}
	item, err := h.service.Approve(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Reject godoc
// @Summary Reject a pending certificate request
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectCertificateRequest true "Rejection remarks"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /certificates/{id}/reject [post]
func (h *CertificateHandler) Reject(c *gin.Context) {
	var req dto.RejectCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	item, err := h.service.Reject(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Release godoc
// @Summary Release an approved request as an issued certificate
// @Description Re-releasing returns the existing certificate with 200
// @Tags Certificates
// @Produce json
// @Param id path string true "Request ID"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /certificates/{id}/release [post]
func (h *CertificateHandler) Release(c *gin.Context) {
	result, err := h.service.Release(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if result.Existing {
		status = http.StatusOK
	}
	var meta map[string]interface{}
	if len(result.Warnings) > 0 {
		meta = map[string]interface{}{"warnings": result.Warnings}
	}
	response.JSON(c, status, result, nil, meta)
}

// GetIssued godoc
// @Summary Get an issued certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Issued certificate ID"
// @Success 200 {object} response.Envelope
// @Router /issued-certificates/{id} [get]
func (h *CertificateHandler) GetIssued(c *gin.Context) {
	item, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Revoke godoc
// @Summary Revoke an issued certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Issued certificate ID"
// @Param payload body dto.RevokeCertificateRequest true "Revocation reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /issued-certificates/{id}/revoke [post]
func (h *CertificateHandler) Revoke(c *gin.Context) {
	var req dto.RevokeCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid revocation payload"))
		return
	}
	item, err := h.service.Revoke(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Document godoc
// @Summary Download the rendered certificate PDF
// @Tags Certificates
// @Produce application/pdf
// @Param id path string true "Issued certificate ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /issued-certificates/{id}/document [get]
func (h *CertificateHandler) Document(c *gin.Context) {
	file, cert, err := h.documents.OpenDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read certificate document"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.pdf\"", cert.CertificateNumber))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
