package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/barangay-api/internal/models"
)

// CaptainRoleKey is the official role whose holder signs certificates.
const CaptainRoleKey = "CAPTAIN"

// SignerRepository answers "who signs and is a signature on file" from the
// officials table and the barangay profile. Nothing is cached.
type SignerRepository struct {
	db        *sqlx.DB
	officials *OfficialRepository
}

// NewSignerRepository constructs the repository.
func NewSignerRepository(db *sqlx.DB, officials *OfficialRepository) *SignerRepository {
	return &SignerRepository{db: db, officials: officials}
}

// CurrentAuthority returns the active captain, or nil when the seat is vacant.
func (r *SignerRepository) CurrentAuthority(ctx context.Context) (*models.Official, error) {
	return r.officials.ActiveByRole(ctx, CaptainRoleKey)
}

// HasSignature reports whether the official has a signature image on file.
func (r *SignerRepository) HasSignature(ctx context.Context, officialID string) (bool, string, error) {
	const query = `SELECT COALESCE(signature_path, '') FROM officials WHERE id = $1`
	var path string
	if err := r.db.GetContext(ctx, &path, query, officialID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("lookup official signature: %w", err)
	}
	path = strings.TrimSpace(path)
	return path != "", path, nil
}

// Profile returns the barangay profile row, or nil when none is configured.
func (r *SignerRepository) Profile(ctx context.Context) (*models.BarangayProfile, error) {
	const query = `SELECT id, name, municipality, province, captain_name, captain_signature_path FROM barangay_profile ORDER BY id LIMIT 1`
	var profile models.BarangayProfile
	if err := r.db.GetContext(ctx, &profile, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load barangay profile: %w", err)
	}
	return &profile, nil
}
