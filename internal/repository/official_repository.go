package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/barangay-api/internal/models"
)

// OfficialRepository persists barangay officials and answers signer lookups.
type OfficialRepository struct {
	db *sqlx.DB
}

// NewOfficialRepository constructs the repository.
func NewOfficialRepository(db *sqlx.DB) *OfficialRepository {
	return &OfficialRepository{db: db}
}

const officialColumns = `id, full_name, position, role_key, active, signature_path, term_start, term_end, created_at, updated_at`

// GetByID fetches an official by identifier.
func (r *OfficialRepository) GetByID(ctx context.Context, id string) (*models.Official, error) {
	var official models.Official
	if err := r.db.GetContext(ctx, &official, `SELECT `+officialColumns+` FROM officials WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &official, nil
}

// List returns officials ordered by role and name.
func (r *OfficialRepository) List(ctx context.Context, filter models.OfficialFilter) ([]models.Official, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + officialColumns + ` FROM officials WHERE 1=1`)
	args := make([]interface{}, 0, 2)
	if filter.RoleKey != "" {
		args = append(args, strings.ToUpper(filter.RoleKey))
		fmt.Fprintf(&builder, " AND role_key = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		fmt.Fprintf(&builder, " AND active = $%d", len(args))
	}
	builder.WriteString(" ORDER BY role_key ASC, full_name ASC")

	var officials []models.Official
	if err := r.db.SelectContext(ctx, &officials, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list officials: %w", err)
	}
	return officials, nil
}

// CreateTx inserts an official inside the caller's transaction.
func (r *OfficialRepository) CreateTx(ctx context.Context, exec sqlx.ExtContext, official *models.Official) error {
	if official.ID == "" {
		official.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	official.CreatedAt = now
	official.UpdatedAt = now
	const query = `INSERT INTO officials (id, full_name, position, role_key, active, signature_path, term_start, term_end, created_at, updated_at)
	VALUES (:id, :full_name, :position, :role_key, :active, :signature_path, :term_start, :term_end, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, official); err != nil {
		return fmt.Errorf("create official: %w", err)
	}
	return nil
}

// GetForUpdateTx loads and row-locks an official inside the caller's transaction.
func (r *OfficialRepository) GetForUpdateTx(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Official, error) {
	var official models.Official
	if err := sqlx.GetContext(ctx, exec, &official, `SELECT `+officialColumns+` FROM officials WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return &official, nil
}

// UpdateTx persists the mutable columns of an official.
func (r *OfficialRepository) UpdateTx(ctx context.Context, exec sqlx.ExtContext, official *models.Official) error {
	official.UpdatedAt = time.Now().UTC()
	const query = `UPDATE officials SET full_name = :full_name, position = :position, active = :active,
	term_start = :term_start, term_end = :term_end, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, exec, query, official)
	if err != nil {
		return fmt.Errorf("update official: %w", err)
	}
	return expectOneRow(result, "official")
}

// LockRoleKeyTx serialises activations for one role key until the
// transaction ends.
func (r *OfficialRepository) LockRoleKeyTx(ctx context.Context, exec sqlx.ExtContext, roleKey string) error {
	if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, roleKey); err != nil {
		return fmt.Errorf("lock role key %s: %w", roleKey, err)
	}
	return nil
}

// CountActiveByRoleTx counts active holders of a role key other than excludeID.
func (r *OfficialRepository) CountActiveByRoleTx(ctx context.Context, exec sqlx.ExtContext, roleKey, excludeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM officials WHERE role_key = $1 AND active = TRUE AND id <> $2`
	var count int
	if err := sqlx.GetContext(ctx, exec, &count, query, roleKey, excludeID); err != nil {
		return 0, fmt.Errorf("count active officials: %w", err)
	}
	return count, nil
}

// Deactivate marks an official inactive.
func (r *OfficialRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE officials SET active = FALSE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate official: %w", err)
	}
	return expectOneRow(result, "official")
}

// SetSignature records the stored signature image of an official.
func (r *OfficialRepository) SetSignature(ctx context.Context, id, path string) error {
	const query = `UPDATE officials SET signature_path = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set official signature: %w", err)
	}
	return expectOneRow(result, "official")
}

// ActiveByRole returns the active holder of a role key, or nil when vacant.
func (r *OfficialRepository) ActiveByRole(ctx context.Context, roleKey string) (*models.Official, error) {
	const query = `SELECT ` + officialColumns + ` FROM officials WHERE role_key = $1 AND active = TRUE ORDER BY updated_at DESC LIMIT 1`
	var official models.Official
	if err := r.db.GetContext(ctx, &official, query, roleKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active %s: %w", roleKey, err)
	}
	return &official, nil
}
