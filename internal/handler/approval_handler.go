package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/internal/service"
	"github.com/noah-isme/barangay-api/pkg/response"
)

type approvalService interface {
	ListQueue(ctx context.Context, actor *models.JWTClaims, filter string) (*service.ApprovalQueue, error)
	ExportQueue(ctx context.Context, actor *models.JWTClaims, filter string) ([]byte, error)
}

// ApprovalHandler exposes the unified approval queue.
type ApprovalHandler struct {
	service approvalService
	now     func() time.Time
}

// NewApprovalHandler builds a new handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service, now: time.Now}
}

// List godoc
// @Summary List pending approvals
// @Description Returns pending certificates, active blotter cases and unresolved incidents, oldest first
// @Tags Approvals
// @Produce json
// @Param type query string false "certificate, blotter or incident"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	var query dto.ApprovalQuery
	_ = c.ShouldBindQuery(&query)

	queue, err := h.service.ListQueue(c.Request.Context(), claimsFromContext(c), query.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithStatistics(c, queue.Items, queue.Stats)
}

// Export godoc
// @Summary Export pending approvals as CSV
// @Tags Approvals
// @Produce text/csv
// @Param type query string false "certificate, blotter or incident"
// @Success 200 {file} file
// @Router /approvals/export [get]
func (h *ApprovalHandler) Export(c *gin.Context) {
	var query dto.ApprovalQuery
	_ = c.ShouldBindQuery(&query)

	data, err := h.service.ExportQueue(c.Request.Context(), claimsFromContext(c), query.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("approvals-%s.csv", h.now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
