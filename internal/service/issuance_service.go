package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/internal/repository"
	"github.com/noah-isme/barangay-api/pkg/config"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
	"github.com/noah-isme/barangay-api/pkg/qrcode"
)

// RenderWarning is attached to an issuance whose document could not be produced.
const RenderWarning = "certificate issued but the PDF could not be generated; download will retry rendering"

type certificateRequestStore interface {
	Create(ctx context.Context, req *models.CertificateRequest) error
	GetByID(ctx context.Context, id string) (*models.CertificateRequest, error)
	List(ctx context.Context, filter models.CertificateRequestFilter) ([]models.CertificateRequest, int, error)
	UpdateStatusTx(ctx context.Context, exec sqlx.ExtContext, params repository.UpdateCertificateStatusParams) error
}

type issuedCertificateStore interface {
	GetBySourceRequest(ctx context.Context, requestID string) (*models.IssuedCertificate, error)
	GetByID(ctx context.Context, id string) (*models.IssuedCertificate, error)
	GetByNumber(ctx context.Context, number string) (*models.IssuedCertificate, error)
	CreateTx(ctx context.Context, exec sqlx.ExtContext, cert *models.IssuedCertificate) error
	SetPDFPath(ctx context.Context, id, path string) error
	Revoke(ctx context.Context, id, revokedBy, reason string, at time.Time) error
}

type sequenceAllocator interface {
	NextTx(ctx context.Context, exec sqlx.ExtContext, scope string, period int) (int64, error)
}

type signerResolver interface {
	ResolveSigner(ctx context.Context) (*Signer, error)
}

type verificationCodec interface {
	Encode(claims qrcode.Claims) (string, error)
	Decode(code string) (qrcode.Claims, error)
}

type documentReader interface {
	Open(name string) (*os.File, error)
}

type issuanceMetrics interface {
	RecordIssued(certificateType string)
	RecordRenderFailure()
}

// FormatSequenceNumber renders <PREFIX>-<YYYY>-<seq>, zero padding seq to width.
func FormatSequenceNumber(prefix string, year int, seq int64, width int) string {
	if width <= 0 {
		width = 4
	}
	return fmt.Sprintf("%s-%04d-%0*d", prefix, year, width, seq)
}

// IssuanceService turns approved requests into issued certificates.
type IssuanceService struct {
	requests  certificateRequestStore
	issued    issuedCertificateStore
	sequences sequenceAllocator
	signers   signerResolver
	gate      approvalGate
	codec     verificationCodec
	renderer  CertificateRenderer
	documents documentReader
	runner    *TransitionRunner
	metrics   issuanceMetrics
	cfg       config.CertificatesConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// IssuanceDeps groups the collaborators of IssuanceService.
type IssuanceDeps struct {
	Requests  certificateRequestStore
	Issued    issuedCertificateStore
	Sequences sequenceAllocator
	Signers   signerResolver
	Gate      approvalGate
	Codec     verificationCodec
	Renderer  CertificateRenderer
	Documents documentReader
	Runner    *TransitionRunner
	Metrics   issuanceMetrics
}

// NewIssuanceService constructs the service.
func NewIssuanceService(deps IssuanceDeps, cfg config.CertificatesConfig, logger *zap.Logger) *IssuanceService {
	if deps.Metrics == nil {
		deps.Metrics = (*MetricsService)(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssuanceService{
		requests:  deps.Requests,
		issued:    deps.Issued,
		sequences: deps.Sequences,
		signers:   deps.Signers,
		gate:      deps.Gate,
		codec:     deps.Codec,
		renderer:  deps.Renderer,
		documents: deps.Documents,
		runner:    deps.Runner,
		metrics:   deps.Metrics,
		cfg:       cfg,
		validator: newValidator(),
		logger:    logger,
	}
}

// Issue releases an approved request and creates its certificate. Issuing the
// same request again returns the existing certificate. A failed render does
// not undo the issuance; the result then carries a warning.
func (s *IssuanceService) Issue(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.IssuanceResult, error) {
	if err := s.gate.CanApprove(ctx, actor, models.ActionRelease); err != nil {
		return nil, err
	}
	if existing, err := s.existing(ctx, requestID); err != nil || existing != nil {
		return existing, err
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapLookupError(err, "certificate request")
	}

	signer, err := s.signers.ResolveSigner(ctx)
	if err != nil {
		return nil, err
	}

	issuedAt := s.runner.now()
	year := issuedAt.Year()
	prefix := s.cfg.PrefixFor(req.CertificateType)
	cert := &models.IssuedCertificate{
		ID:              uuid.NewString(),
		SourceRequestID: req.ID,
		CertificateType: req.CertificateType,
		ResidentID:      req.ResidentID,
		ValidFrom:       issuedAt,
		ValidUntil:      issuedAt.Add(s.cfg.ValidityFor(req.CertificateType)),
		IsValid:         true,
		IssuedAt:        issuedAt,
		IssuedBy:        actor.UserID,
		SignerName:      signer.Name,
	}
	var warnings []string

	_, err = runTransition(ctx, s.runner, CertificateWorkflow, transitionRequest[models.CertificateStatus]{
		Actor:    actor,
		RecordID: req.ID,
		From:     req.Status,
		To:       models.CertificateStatusReleased,
		At:       issuedAt,
		LockKey:  fmt.Sprintf("certificate-number:%s:%d", prefix, year),
		Event:    models.EventIssued,
		EventData: func() map[string]string {
			return map[string]string{"certificate_id": cert.ID, "certificate_number": cert.CertificateNumber}
		},
		Persist: func(ctx context.Context, tx *sqlx.Tx, _ models.WorkflowAction, at time.Time) error {
			// Claiming the request first means a concurrent or stale release
			// fails before a number is taken.
			if err := s.requests.UpdateStatusTx(ctx, tx, repository.UpdateCertificateStatusParams{
				ID:        req.ID,
				From:      models.CertificateStatusApproved,
				To:        models.CertificateStatusReleased,
				UpdatedAt: at,
			}); err != nil {
				return err
			}
			seq, err := s.sequences.NextTx(ctx, tx, prefix, year)
			if err != nil {
				return err
			}
			cert.CertificateNumber = FormatSequenceNumber(prefix, year, seq, s.cfg.SequenceWidth)
			code, err := s.codec.Encode(qrcode.Claims{
				CertificateNumber: cert.CertificateNumber,
				ResidentRef:       cert.ResidentID,
				IssuedAt:          cert.IssuedAt,
			})
			if err != nil {
				return err
			}
			cert.QRPayload = code
			return s.issued.CreateTx(ctx, tx, cert)
		},
		AfterCommit: func(ctx context.Context) {
			if !s.render(ctx, cert, req, signer) {
				warnings = append(warnings, RenderWarning)
			}
		},
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidTransition) {
			if existing, lookupErr := s.existing(ctx, requestID); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	s.metrics.RecordIssued(config.TypeKey(cert.CertificateType))
	s.logger.Info("certificate issued",
		zap.String("number", cert.CertificateNumber),
		zap.String("request_id", req.ID),
		zap.Bool("degraded", len(warnings) > 0),
	)
	return &models.IssuanceResult{Certificate: cert, Warnings: warnings}, nil
}

func (s *IssuanceService) existing(ctx context.Context, requestID string) (*models.IssuanceResult, error) {
	cert, err := s.issued.GetBySourceRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check issued certificate")
	}
	return &models.IssuanceResult{Certificate: cert, Existing: true}, nil
}

// render stores the document and records its path. It reports false when the
// certificate is left without a document.
func (s *IssuanceService) render(ctx context.Context, cert *models.IssuedCertificate, req *models.CertificateRequest, signer *Signer) bool {
	if s.renderer == nil {
		return false
	}
	ref, err := s.renderer.Render(ctx, cert, req, signer)
	if err == nil {
		err = s.issued.SetPDFPath(ctx, cert.ID, ref)
	}
	if err != nil {
		s.metrics.RecordRenderFailure()
		s.logger.Warn("certificate document not generated", zap.String("number", cert.CertificateNumber), zap.Error(err))
		return false
	}
	cert.PDFPath = &ref
	return true
}

// Get returns an issued certificate.
func (s *IssuanceService) Get(ctx context.Context, id string) (*models.IssuedCertificate, error) {
	cert, err := s.issued.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "issued certificate")
	}
	return cert, nil
}

// OpenDocument returns the stored PDF, rendering it first when an earlier
// attempt failed.
func (s *IssuanceService) OpenDocument(ctx context.Context, id string) (*os.File, *models.IssuedCertificate, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if cert.PDFPath == nil || *cert.PDFPath == "" {
		req, err := s.requests.GetByID(ctx, cert.SourceRequestID)
		if err != nil {
			return nil, nil, mapLookupError(err, "certificate request")
		}
		signer, err := s.signers.ResolveSigner(ctx)
		if err != nil {
			return nil, nil, err
		}
		if !s.render(ctx, cert, req, signer) {
			return nil, nil, appErrors.Clone(appErrors.ErrInternal, "certificate document could not be generated")
		}
	}
	file, err := s.documents.Open(*cert.PDFPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "certificate document not found")
	}
	return file, cert, nil
}

// Revoke invalidates an issued certificate. Revoking twice is an invalid
// transition.
func (s *IssuanceService) Revoke(ctx context.Context, actor *models.JWTClaims, id string, req dto.RevokeCertificateRequest) (*models.IssuedCertificate, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid revocation payload")
	}
	if err := s.gate.CanApprove(ctx, actor, models.ActionRevoke); err != nil {
		return nil, err
	}
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	at := s.runner.now()
	if err := s.issued.Revoke(ctx, cert.ID, actor.UserID, req.Reason, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "certificate is already revoked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke certificate")
	}
	cert.IsValid = false
	cert.RevokedAt = &at
	cert.RevokedBy = &actor.UserID
	cert.RevocationReason = &req.Reason

	s.runner.emit(ctx, models.DomainEvent{
		Type:       models.EventRevoked,
		Kind:       models.KindCertificate,
		RecordID:   cert.ID,
		ActorID:    actor.UserID,
		Reason:     req.Reason,
		Data:       map[string]string{"certificate_number": cert.CertificateNumber},
		OccurredAt: at,
	})
	return cert, nil
}
