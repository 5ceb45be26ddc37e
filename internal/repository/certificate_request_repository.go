package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/barangay-api/internal/models"
)

// CertificateRequestRepository persists certificate requests.
type CertificateRequestRepository struct {
	db *sqlx.DB
}

// NewCertificateRequestRepository constructs the repository.
func NewCertificateRequestRepository(db *sqlx.DB) *CertificateRequestRepository {
	return &CertificateRequestRepository{db: db}
}

const certificateRequestSelect = `SELECT cr.id, cr.resident_id, COALESCE(r.full_name, '') AS resident_name,
       cr.certificate_type, cr.purpose, cr.status, cr.requested_by, COALESCE(u.full_name, '') AS requested_by_name,
       cr.requested_at, cr.approved_by, cr.approved_at, cr.remarks, cr.updated_at
FROM certificate_requests cr
LEFT JOIN residents r ON r.id = cr.resident_id
LEFT JOIN users u ON u.id = cr.requested_by`

// Create inserts a new pending request.
func (r *CertificateRequestRepository) Create(ctx context.Context, req *models.CertificateRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.CertificateStatusPending
	}
	now := time.Now().UTC()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = now
	}
	req.UpdatedAt = now
	const query = `INSERT INTO certificate_requests
	(id, resident_id, certificate_type, purpose, status, requested_by, requested_at, approved_by, approved_at, remarks, updated_at)
	VALUES (:id, :resident_id, :certificate_type, :purpose, :status, :requested_by, :requested_at, :approved_by, :approved_at, :remarks, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create certificate request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *CertificateRequestRepository) GetByID(ctx context.Context, id string) (*models.CertificateRequest, error) {
	var req models.CertificateRequest
	if err := r.db.GetContext(ctx, &req, certificateRequestSelect+` WHERE cr.id = $1`, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListPending returns every request awaiting a decision, oldest first.
func (r *CertificateRequestRepository) ListPending(ctx context.Context) ([]models.CertificateRequest, error) {
	query := certificateRequestSelect + ` WHERE cr.status = $1 ORDER BY cr.requested_at ASC, cr.id ASC`
	var requests []models.CertificateRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.CertificateStatusPending); err != nil {
		return nil, fmt.Errorf("list pending certificate requests: %w", err)
	}
	return requests, nil
}

// List returns requests matching the filter (latest first) with the total count.
func (r *CertificateRequestRepository) List(ctx context.Context, filter models.CertificateRequestFilter) ([]models.CertificateRequest, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("cr.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ResidentID != "" {
		args = append(args, filter.ResidentID)
		conditions = append(conditions, fmt.Sprintf("cr.resident_id = $%d", len(args)))
	}
	if filter.CertificateType != "" {
		args = append(args, filter.CertificateType)
		conditions = append(conditions, fmt.Sprintf("cr.certificate_type = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := normalisePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf("%s%s ORDER BY cr.requested_at DESC LIMIT %d OFFSET %d", certificateRequestSelect, where, limit, offset)
	var requests []models.CertificateRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list certificate requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM certificate_requests cr"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count certificate requests: %w", err)
	}
	return requests, total, nil
}

// UpdateCertificateStatusParams describes a guarded status change.
type UpdateCertificateStatusParams struct {
	ID         string
	From       models.CertificateStatus
	To         models.CertificateStatus
	ApprovedBy *string
	ApprovedAt *time.Time
	Remarks    *string
	UpdatedAt  time.Time
}

// UpdateStatusTx moves a request from its expected status to the next one.
// It returns sql.ErrNoRows when the row is missing or no longer in From.
func (r *CertificateRequestRepository) UpdateStatusTx(ctx context.Context, exec sqlx.ExtContext, params UpdateCertificateStatusParams) error {
	setParts := []string{"status = :to", "updated_at = :updated_at"}
	if params.ApprovedBy != nil {
		setParts = append(setParts, "approved_by = :approved_by", "approved_at = :approved_at")
	}
	if params.Remarks != nil {
		setParts = append(setParts, "remarks = :remarks")
	}
	query := fmt.Sprintf("UPDATE certificate_requests SET %s WHERE id = :id AND status = :from", strings.Join(setParts, ", "))
	result, err := sqlx.NamedExecContext(ctx, exec, query, map[string]interface{}{
		"id":          params.ID,
		"from":        params.From,
		"to":          params.To,
		"approved_by": params.ApprovedBy,
		"approved_at": params.ApprovedAt,
		"remarks":     params.Remarks,
		"updated_at":  params.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update certificate request status: %w", err)
	}
	return expectOneRow(result, "certificate request")
}

func expectOneRow(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s update rows: %w", what, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalisePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
