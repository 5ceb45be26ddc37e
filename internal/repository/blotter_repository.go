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

// BlotterRepository persists blotter cases.
type BlotterRepository struct {
	db *sqlx.DB
}

// NewBlotterRepository constructs the repository.
func NewBlotterRepository(db *sqlx.DB) *BlotterRepository {
	return &BlotterRepository{db: db}
}

const blotterSelect = `SELECT b.id, b.case_number,
       b.complainant_resident_id, b.complainant_name, COALESCE(cr.full_name, b.complainant_name, '') AS complainant_label,
       b.respondent_resident_id, b.respondent_name, COALESCE(rr.full_name, b.respondent_name, '') AS respondent_label,
       b.narrative, b.status, b.official_assigned_id, o.full_name AS official_assigned_name, b.remarks,
       b.created_by, COALESCE(u.full_name, '') AS created_by_name, b.created_at, b.updated_at, b.resolved_at
FROM blotter_cases b
LEFT JOIN residents cr ON cr.id = b.complainant_resident_id
LEFT JOIN residents rr ON rr.id = b.respondent_resident_id
LEFT JOIN officials o ON o.id = b.official_assigned_id
LEFT JOIN users u ON u.id = b.created_by`

// CreateTx inserts a case; the case number is allocated in the same transaction.
func (r *BlotterRepository) CreateTx(ctx context.Context, exec sqlx.ExtContext, c *models.BlotterCase) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.BlotterStatusOpen
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	const query = `INSERT INTO blotter_cases
	(id, case_number, complainant_resident_id, complainant_name, respondent_resident_id, respondent_name,
	 narrative, status, official_assigned_id, created_by, created_at, updated_at)
	VALUES (:id, :case_number, :complainant_resident_id, :complainant_name, :respondent_resident_id, :respondent_name,
	 :narrative, :status, :official_assigned_id, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, c); err != nil {
		return fmt.Errorf("create blotter case: %w", err)
	}
	return nil
}

// GetByID fetches a case by identifier.
func (r *BlotterRepository) GetByID(ctx context.Context, id string) (*models.BlotterCase, error) {
	var c models.BlotterCase
	if err := r.db.GetContext(ctx, &c, blotterSelect+` WHERE b.id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListPending returns cases that are not yet resolved, oldest first.
func (r *BlotterRepository) ListPending(ctx context.Context) ([]models.BlotterCase, error) {
	query := blotterSelect + ` WHERE b.status IN ($1, $2) ORDER BY b.created_at ASC, b.id ASC`
	var cases []models.BlotterCase
	if err := r.db.SelectContext(ctx, &cases, query, models.BlotterStatusOpen, models.BlotterStatusOngoing); err != nil {
		return nil, fmt.Errorf("list pending blotter cases: %w", err)
	}
	return cases, nil
}

// List returns cases matching the filter (latest first) with the total count.
func (r *BlotterRepository) List(ctx context.Context, filter models.BlotterFilter) ([]models.BlotterCase, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("b.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(b.case_number ILIKE $%[1]d OR b.narrative ILIKE $%[1]d)", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := normalisePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf("%s%s ORDER BY b.created_at DESC LIMIT %d OFFSET %d", blotterSelect, where, limit, offset)
	var cases []models.BlotterCase
	if err := r.db.SelectContext(ctx, &cases, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list blotter cases: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM blotter_cases b"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count blotter cases: %w", err)
	}
	return cases, total, nil
}

// UpdateBlotterStatusParams describes a guarded status change.
type UpdateBlotterStatusParams struct {
	ID         string
	From       models.BlotterStatus
	To         models.BlotterStatus
	Remarks    *string
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// UpdateStatusTx moves a case from its expected status to the next one.
// It returns sql.ErrNoRows when the row is missing or no longer in From.
func (r *BlotterRepository) UpdateStatusTx(ctx context.Context, exec sqlx.ExtContext, params UpdateBlotterStatusParams) error {
	const query = `UPDATE blotter_cases
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
		return fmt.Errorf("update blotter status: %w", err)
	}
	return expectOneRow(result, "blotter case")
}

// AssignOfficial sets the handling official on a case that is not resolved.
func (r *BlotterRepository) AssignOfficial(ctx context.Context, id, officialID string, at time.Time) error {
	const query = `UPDATE blotter_cases SET official_assigned_id = $2, updated_at = $3 WHERE id = $1 AND status <> $4`
	result, err := r.db.ExecContext(ctx, query, id, officialID, at, models.BlotterStatusResolved)
	if err != nil {
		return fmt.Errorf("assign blotter official: %w", err)
	}
	return expectOneRow(result, "blotter case")
}
