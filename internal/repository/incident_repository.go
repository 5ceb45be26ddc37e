package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/barangay-api/internal/models"
)

// IncidentRepository persists incident reports.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs the repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

const incidentSelect = `SELECT i.id, i.title, i.description, i.location, i.status,
       i.reporting_officer_id, o.full_name AS reporting_officer_name, i.remarks,
       i.created_by, COALESCE(u.full_name, '') AS created_by_name, i.created_at, i.updated_at, i.resolved_at
FROM incident_reports i
LEFT JOIN officials o ON o.id = i.reporting_officer_id
LEFT JOIN users u ON u.id = i.created_by`

// Create inserts a new report in the Recorded state.
func (r *IncidentRepository) Create(ctx context.Context, report *models.IncidentReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = models.IncidentStatusRecorded
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	const query = `INSERT INTO incident_reports
	(id, title, description, location, status, reporting_officer_id, created_by, created_at, updated_at)
	VALUES (:id, :title, :description, :location, :status, :reporting_officer_id, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create incident report: %w", err)
	}
	return nil
}

// GetByID fetches a report by identifier.
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*models.IncidentReport, error) {
	var report models.IncidentReport
	if err := r.db.GetContext(ctx, &report, incidentSelect+` WHERE i.id = $1`, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListPending returns reports that are not yet resolved, oldest first.
func (r *IncidentRepository) ListPending(ctx context.Context) ([]models.IncidentReport, error) {
	query := incidentSelect + ` WHERE i.status IN ($1, $2) ORDER BY i.created_at ASC, i.id ASC`
	var reports []models.IncidentReport
	if err := r.db.SelectContext(ctx, &reports, query, models.IncidentStatusRecorded, models.IncidentStatusMonitoring); err != nil {
		return nil, fmt.Errorf("list pending incident reports: %w", err)
	}
	return reports, nil
}

// List returns reports matching the filter (latest first) with the total count.
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]models.IncidentReport, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("i.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(i.title ILIKE $%[1]d OR i.location ILIKE $%[1]d)", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := normalisePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf("%s%s ORDER BY i.created_at DESC LIMIT %d OFFSET %d", incidentSelect, where, limit, offset)
	var reports []models.IncidentReport
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list incident reports: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM incident_reports i"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count incident reports: %w", err)
	}
	return reports, total, nil
}

// UpdateIncidentStatusParams describes a guarded status change.
type UpdateIncidentStatusParams struct {
	ID         string
	From       models.IncidentStatus
	To         models.IncidentStatus
	Remarks    *string
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// UpdateStatusTx moves a report from its expected status to the next one.
// It returns sql.ErrNoRows when the row is missing or no longer in From.
func (r *IncidentRepository) UpdateStatusTx(ctx context.Context, exec sqlx.ExtContext, params UpdateIncidentStatusParams) error {
	const query = `UPDATE incident_reports
	SET status = :to, remarks = COALESCE(:remarks, remarks), resolved_at = COALESCE(:resolved_at, resolved_at), updated_at = :updated_at
	WHERE id = :id AND status = :from`
	result, err := sqlx.NamedExecContext(ctx, exec, query, map[string]interface{}{
		"id":          params.ID,
		"from":        params.From,
		"to":          params.To,
		"remarks":     params.Remarks,
		"resolved_at": params.ResolvedAt,
		"updated_at":  params.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update incident status: %w", err)
	}
	return expectOneRow(result, "incident report")
}
