package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
	"github.com/noah-isme/barangay-api/pkg/response"
)

const maxSignatureBytes = 2 << 20

var signatureExtensions = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}}

type officialService interface {
	List(ctx context.Context, filter models.OfficialFilter) ([]models.Official, error)
	Get(ctx context.Context, id string) (*models.Official, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateOfficialRequest) (*models.Official, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateOfficialRequest) (*models.Official, error)
	Deactivate(ctx context.Context, actor *models.JWTClaims, id string) error
	UploadSignature(ctx context.Context, actor *models.JWTClaims, id string, req dto.UploadSignatureRequest) (*models.Official, error)
}

type signatureStore interface {
	Save(name string, data []byte) (string, error)
}

// OfficialHandler exposes barangay official management endpoints.
type OfficialHandler struct {
	service officialService
	store   signatureStore
}

// NewOfficialHandler builds a new handler.
func NewOfficialHandler(service officialService, store signatureStore) *OfficialHandler {
	return &OfficialHandler{service: service, store: store}
}

// List godoc
// @Summary List officials
// @Tags Officials
// @Produce json
// @Param role_key query string false "Role key"
// @Param active query bool false "Active flag"
// @Success 200 {object} response.Envelope
// @Router /officials [get]
func (h *OfficialHandler) List(c *gin.Context) {
	filter := models.OfficialFilter{RoleKey: strings.ToUpper(strings.TrimSpace(c.Query("role_key")))}
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}
	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get an official
// @Tags Officials
// @Produce json
// @Param id path string true "Official ID"
// @Success 200 {object} response.Envelope
// @Router /officials/{id} [get]
func (h *OfficialHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Register an official
// @Tags Officials
// @Accept json
// @Produce json
// @Param payload body dto.CreateOfficialRequest true "Official payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /officials [post]
func (h *OfficialHandler) Create(c *gin.Context) {
	var req dto.CreateOfficialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid official payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update an official
// @Tags Officials
// @Accept json
// @Produce json
// @Param id path string true "Official ID"
// @Param payload body dto.UpdateOfficialRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /officials/{id} [put]
func (h *OfficialHandler) Update(c *gin.Context) {
	var req dto.UpdateOfficialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid official payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Deactivate godoc
// @Summary Deactivate an official
// @Tags Officials
// @Param id path string true "Official ID"
// @Success 204
// @Router /officials/{id} [delete]
func (h *OfficialHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadSignature godoc
// @Summary Upload an official's signature image
// @Description Accepts a multipart "signature" file (png or jpeg) or a JSON body naming an already stored path
// @Tags Officials
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param id path string true "Official ID"
// @Param signature formData file false "Signature image"
// @Success 200 {object} response.Envelope
// @Router /officials/{id}/signature [post]
func (h *OfficialHandler) UploadSignature(c *gin.Context) {
	id := c.Param("id")
	var req dto.UploadSignatureRequest

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		ref, err := h.storeSignature(c, id)
		if err != nil {
			response.Error(c, err)
			return
		}
		req.SignaturePath = ref
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid signature payload"))
		return
	}

	item, err := h.service.UploadSignature(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *OfficialHandler) storeSignature(c *gin.Context, officialID string) (string, error) {
	if claims := claimsFromContext(c); claims == nil || !claims.Role.IsAuthority() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "only the barangay captain or an administrator may manage officials")
	}
	if h.store == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "signature storage not configured")
	}
	header, err := c.FormFile("signature")
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "signature file required")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := signatureExtensions[ext]; !ok {
		return "", appErrors.WithFields(appErrors.ErrValidation, "unsupported signature format", map[string]string{"signature": "format"})
	}
	if header.Size > maxSignatureBytes {
		return "", appErrors.WithFields(appErrors.ErrValidation, "signature file too large", map[string]string{"signature": "max"})
	}

	file, err := header.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read signature")
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(io.LimitReader(file, maxSignatureBytes+1))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read signature")
	}

	ref, err := h.store.Save(fmt.Sprintf("signatures/%s%s", filepath.Base(officialID), ext), data)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store signature")
	}
	return ref, nil
}
