package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/internal/repository"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type certificateIssuer interface {
	Issue(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.IssuanceResult, error)
	Revoke(ctx context.Context, actor *models.JWTClaims, id string, req dto.RevokeCertificateRequest) (*models.IssuedCertificate, error)
}

// CertificateService manages certificate requests through their workflow.
type CertificateService struct {
	repo      certificateRequestStore
	issuer    certificateIssuer
	runner    *TransitionRunner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCertificateService constructs the service.
func NewCertificateService(repo certificateRequestStore, issuer certificateIssuer, runner *TransitionRunner, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		repo:      repo,
		issuer:    issuer,
		runner:    runner,
		validator: newValidator(),
		logger:    logger,
	}
}

// Create files a pending request on behalf of a resident.
func (s *CertificateService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateCertificateRequest) (*models.CertificateRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.ResidentID = strings.TrimSpace(req.ResidentID)
	req.CertificateType = strings.TrimSpace(req.CertificateType)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid certificate request payload")
	}

	now := s.runner.now()
	record := &models.CertificateRequest{
		ID:              uuid.NewString(),
		ResidentID:      req.ResidentID,
		CertificateType: req.CertificateType,
		Purpose:         req.Purpose,
		Status:          models.CertificateStatusPending,
		RequestedBy:     actor.UserID,
		RequestedByName: actor.FullName,
		RequestedAt:     now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create certificate request")
	}
	s.runner.emit(ctx, models.DomainEvent{
		Type:     models.EventCreated,
		Kind:     models.KindCertificate,
		RecordID: record.ID,
		ActorID:  actor.UserID,
		To:       string(record.Status),
		Data:     map[string]string{"certificate_type": record.CertificateType},
	})
	return record, nil
}

// Get returns a request by id.
func (s *CertificateService) Get(ctx context.Context, id string) (*models.CertificateRequest, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "certificate request")
	}
	return record, nil
}

// List returns requests matching the query.
func (s *CertificateService) List(ctx context.Context, query dto.CertificateQuery) ([]models.CertificateRequest, *models.Pagination, error) {
	page, size := pageBounds(query.Page, query.PageSize)
	records, total, err := s.repo.List(ctx, models.CertificateRequestFilter{
		Status:          query.Status,
		ResidentID:      query.ResidentID,
		CertificateType: query.Type,
		Limit:           size,
		Offset:          (page - 1) * size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificate requests")
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Approve moves a pending request to approved. The authority must have a
// signature on file.
func (s *CertificateService) Approve(ctx context.Context, actor *models.JWTClaims, id string, req dto.ApproveCertificateRequest) (*models.CertificateRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid approval payload")
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	remarks := optionalString(req.Remarks)
	var approvedAt time.Time
	at, err := runTransition(ctx, s.runner, CertificateWorkflow, transitionRequest[models.CertificateStatus]{
		Actor:    actor,
		RecordID: record.ID,
		From:     record.Status,
		To:       models.CertificateStatusApproved,
		Persist: func(ctx context.Context, tx *sqlx.Tx, _ models.WorkflowAction, at time.Time) error {
			approvedAt = at
			return s.repo.UpdateStatusTx(ctx, tx, repository.UpdateCertificateStatusParams{
				ID:         record.ID,
				From:       record.Status,
				To:         models.CertificateStatusApproved,
				ApprovedBy: &actor.UserID,
				ApprovedAt: &approvedAt,
				Remarks:    remarks,
				UpdatedAt:  at,
			})
		},
	})
	if err != nil {
		return nil, err
	}
	record.Status = models.CertificateStatusApproved
	record.ApprovedBy = &actor.UserID
	record.ApprovedAt = &approvedAt
	if remarks != nil {
		record.Remarks = remarks
	}
	record.UpdatedAt = at
	return record, nil
}

// Reject closes a pending request. Remarks are required.
func (s *CertificateService) Reject(ctx context.Context, actor *models.JWTClaims, id string, req dto.RejectCertificateRequest) (*models.CertificateRequest, error) {
	req.Remarks = strings.TrimSpace(req.Remarks)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "rejection remarks are required")
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	at, err := runTransition(ctx, s.runner, CertificateWorkflow, transitionRequest[models.CertificateStatus]{
		Actor:    actor,
		RecordID: record.ID,
		From:     record.Status,
		To:       models.CertificateStatusRejected,
		Reason:   req.Remarks,
		Persist: func(ctx context.Context, tx *sqlx.Tx, _ models.WorkflowAction, at time.Time) error {
			return s.repo.UpdateStatusTx(ctx, tx, repository.UpdateCertificateStatusParams{
				ID:        record.ID,
				From:      record.Status,
				To:        models.CertificateStatusRejected,
				Remarks:   &req.Remarks,
				UpdatedAt: at,
			})
		},
	})
	if err != nil {
		return nil, err
	}
	record.Status = models.CertificateStatusRejected
	record.Remarks = &req.Remarks
	record.UpdatedAt = at
	return record, nil
}

// Release issues the certificate for an approved request.
func (s *CertificateService) Release(ctx context.Context, actor *models.JWTClaims, id string) (*models.IssuanceResult, error) {
	return s.issuer.Issue(ctx, actor, id)
}

// Revoke invalidates an issued certificate.
func (s *CertificateService) Revoke(ctx context.Context, actor *models.JWTClaims, issuedID string, req dto.RevokeCertificateRequest) (*models.IssuedCertificate, error) {
	return s.issuer.Revoke(ctx, actor, issuedID, req)
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
