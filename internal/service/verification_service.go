package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
	"github.com/noah-isme/barangay-api/pkg/qrcode"
)

type certificateByNumber interface {
	GetByNumber(ctx context.Context, number string) (*models.IssuedCertificate, error)
}

type codeDecoder interface {
	Decode(code string) (qrcode.Claims, error)
}

// VerificationService answers public scans of certificate QR codes.
type VerificationService struct {
	issued certificateByNumber
	codec  codeDecoder
	logger *zap.Logger
	now    func() time.Time
}

// NewVerificationService constructs the service.
func NewVerificationService(issued certificateByNumber, codec codeDecoder, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		issued: issued,
		codec:  codec,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Verify checks a scanned code. Tampered, unknown and mismatched codes all
// read as not found so the endpoint cannot be used to probe numbers.
func (s *VerificationService) Verify(ctx context.Context, code string) (*models.VerificationResult, error) {
	notFound := appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
	claims, err := s.codec.Decode(code)
	if err != nil {
		return nil, notFound
	}
	cert, err := s.issued.GetByNumber(ctx, claims.CertificateNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify certificate")
	}
	if cert.ResidentID != claims.ResidentRef || cert.IssuedAt.Unix() != claims.IssuedAt.Unix() {
		s.logger.Warn("verification code does not match certificate", zap.String("number", cert.CertificateNumber))
		return nil, notFound
	}

	result := &models.VerificationResult{
		Status:            models.VerificationValid,
		CertificateNumber: cert.CertificateNumber,
		CertificateType:   cert.CertificateType,
		IssuedAt:          cert.IssuedAt,
		ValidUntil:        cert.ValidUntil,
		SignerName:        cert.SignerName,
		RevokedAt:         cert.RevokedAt,
	}
	switch {
	case !cert.IsValid:
		result.Status = models.VerificationRevoked
	case s.now().After(cert.ValidUntil):
		result.Status = models.VerificationExpired
	}
	return result, nil
}
