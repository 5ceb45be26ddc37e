package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/pkg/response"
)

type verificationService interface {
	Verify(ctx context.Context, code string) (*models.VerificationResult, error)
}

// VerificationHandler serves the public QR verification endpoint.
type VerificationHandler struct {
	service verificationService
}

// NewVerificationHandler builds a new handler.
func NewVerificationHandler(service verificationService) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// Verify godoc
// @Summary Verify a certificate QR code
// @Tags Verification
// @Produce json
// @Param code path string true "Signed verification code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /verify/{code} [get]
func (h *VerificationHandler) Verify(c *gin.Context) {
	result, err := h.service.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
