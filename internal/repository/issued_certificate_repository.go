package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/barangay-api/internal/models"
)

// IssuedCertificateRepository persists issued certificates. Rows are never
// deleted; revocation only flips is_valid.
type IssuedCertificateRepository struct {
	db *sqlx.DB
}

// NewIssuedCertificateRepository constructs the repository.
func NewIssuedCertificateRepository(db *sqlx.DB) *IssuedCertificateRepository {
	return &IssuedCertificateRepository{db: db}
}

const issuedCertificateColumns = `id, source_request_id, certificate_number, certificate_type, resident_id, qr_payload,
       valid_from, valid_until, is_valid, revoked_at, revoked_by, revocation_reason, issued_at, issued_by, signer_name, pdf_path`

// GetBySourceRequest returns the certificate issued for a request, if any.
func (r *IssuedCertificateRepository) GetBySourceRequest(ctx context.Context, requestID string) (*models.IssuedCertificate, error) {
	return r.getOne(ctx, "source_request_id", requestID)
}

// GetByID fetches an issued certificate by identifier.
func (r *IssuedCertificateRepository) GetByID(ctx context.Context, id string) (*models.IssuedCertificate, error) {
	return r.getOne(ctx, "id", id)
}

// GetByNumber fetches an issued certificate by its printed number.
func (r *IssuedCertificateRepository) GetByNumber(ctx context.Context, number string) (*models.IssuedCertificate, error) {
	return r.getOne(ctx, "certificate_number", number)
}

func (r *IssuedCertificateRepository) getOne(ctx context.Context, column, value string) (*models.IssuedCertificate, error) {
	query := fmt.Sprintf("SELECT %s FROM issued_certificates WHERE %s = $1", issuedCertificateColumns, column)
	var cert models.IssuedCertificate
	if err := r.db.GetContext(ctx, &cert, query, value); err != nil {
		return nil, err
	}
	return &cert, nil
}

// CreateTx inserts the issued certificate inside the issuance transaction.
func (r *IssuedCertificateRepository) CreateTx(ctx context.Context, exec sqlx.ExtContext, cert *models.IssuedCertificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	const query = `INSERT INTO issued_certificates
	(id, source_request_id, certificate_number, certificate_type, resident_id, qr_payload, valid_from, valid_until,
	 is_valid, issued_at, issued_by, signer_name, pdf_path)
	VALUES (:id, :source_request_id, :certificate_number, :certificate_type, :resident_id, :qr_payload, :valid_from, :valid_until,
	 :is_valid, :issued_at, :issued_by, :signer_name, :pdf_path)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, cert); err != nil {
		return fmt.Errorf("create issued certificate: %w", err)
	}
	return nil
}

// SetPDFPath records where the rendered document was stored.
func (r *IssuedCertificateRepository) SetPDFPath(ctx context.Context, id, path string) error {
	const query = `UPDATE issued_certificates SET pdf_path = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path); err != nil {
		return fmt.Errorf("set certificate pdf path: %w", err)
	}
	return nil
}

// Revoke invalidates a certificate that is still valid. It returns
// sql.ErrNoRows when the row is missing or already revoked.
func (r *IssuedCertificateRepository) Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error {
	const query = `UPDATE issued_certificates
	SET is_valid = FALSE, revoked_at = $2, revoked_by = $3, revocation_reason = $4
	WHERE id = $1 AND is_valid = TRUE`
	result, err := r.db.ExecContext(ctx, query, id, at, revokedBy, reason)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	return expectOneRow(result, "issued certificate")
}
