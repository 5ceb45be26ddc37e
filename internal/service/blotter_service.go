package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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
)

type blotterStore interface {
	CreateTx(ctx context.Context, exec sqlx.ExtContext, c *models.BlotterCase) error
	GetByID(ctx context.Context, id string) (*models.BlotterCase, error)
	List(ctx context.Context, filter models.BlotterFilter) ([]models.BlotterCase, int, error)
	UpdateStatusTx(ctx context.Context, exec sqlx.ExtContext, params repository.UpdateBlotterStatusParams) error
	AssignOfficial(ctx context.Context, id, officialID string, at time.Time) error
}

type officialReader interface {
	GetByID(ctx context.Context, id string) (*models.Official, error)
}

// BlotterService records blotter cases and moves them through their lifecycle.
type BlotterService struct {
	repo      blotterStore
	sequences sequenceAllocator
	officials officialReader
	gate      approvalGate
	runner    *TransitionRunner
	cfg       config.ApprovalsConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBlotterService constructs the service.
func NewBlotterService(repo blotterStore, sequences sequenceAllocator, officials officialReader, gate approvalGate, runner *TransitionRunner, cfg config.ApprovalsConfig, logger *zap.Logger) *BlotterService {
	if cfg.BlotterCasePrefix == "" {
		cfg.BlotterCasePrefix = "BLT"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlotterService{
		repo:      repo,
		sequences: sequences,
		officials: officials,
		gate:      gate,
		runner:    runner,
		cfg:       cfg,
		validator: newValidator(),
		logger:    logger,
	}
}

// Create files a case and allocates its BLT-YYYY-NNNN number.
func (s *BlotterService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateBlotterRequest) (*models.BlotterCase, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.ComplainantResidentID = trimmedPtr(req.ComplainantResidentID)
	req.ComplainantName = trimmedPtr(req.ComplainantName)
	req.RespondentResidentID = trimmedPtr(req.RespondentResidentID)
	req.RespondentName = trimmedPtr(req.RespondentName)
	req.Narrative = strings.TrimSpace(req.Narrative)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid blotter payload")
	}
	fields := map[string]string{}
	if (req.ComplainantResidentID == nil) == (req.ComplainantName == nil) {
		fields["complainant"] = "exactly_one"
	}
	if (req.RespondentResidentID == nil) == (req.RespondentName == nil) {
		fields["respondent"] = "exactly_one"
	}
	if len(fields) > 0 {
		return nil, appErrors.WithFields(appErrors.ErrValidation, "each party must be either a resident or a name, not both", fields)
	}

	now := s.runner.now()
	year := now.Year()
	record := &models.BlotterCase{
		ID:                    uuid.NewString(),
		ComplainantResidentID: req.ComplainantResidentID,
		ComplainantName:       req.ComplainantName,
		ComplainantLabel:      partyLabel(req.ComplainantResidentID, req.ComplainantName),
		RespondentResidentID:  req.RespondentResidentID,
		RespondentName:        req.RespondentName,
		RespondentLabel:       partyLabel(req.RespondentResidentID, req.RespondentName),
		Narrative:             req.Narrative,
		Status:                models.BlotterStatusOpen,
		CreatedBy:             actor.UserID,
		CreatedByName:         actor.FullName,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	key := fmt.Sprintf("case-number:%s:%d", s.cfg.BlotterCasePrefix, year)
	err := s.runner.withLockedTx(ctx, key, func(tx *sqlx.Tx) error {
		seq, err := s.sequences.NextTx(ctx, tx, s.cfg.BlotterCasePrefix, year)
		if err != nil {
			return err
		}
		record.CaseNumber = FormatSequenceNumber(s.cfg.BlotterCasePrefix, year, seq, s.cfg.BlotterSequenceWidth)
		return s.repo.CreateTx(ctx, tx, record)
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blotter case")
	}

	s.runner.emit(ctx, models.DomainEvent{
		Type:     models.EventCreated,
		Kind:     models.KindBlotter,
		RecordID: record.ID,
		ActorID:  actor.UserID,
		To:       string(record.Status),
		Data:     map[string]string{"case_number": record.CaseNumber},
	})

	// Resident-linked parties are labelled from the residents table on read.
	stored, err := s.repo.GetByID(ctx, record.ID)
	if err != nil {
		s.logger.Warn("reload blotter case after create", zap.String("id", record.ID), zap.Error(err))
		return record, nil
	}
	return stored, nil
}

// Get returns a case by id.
func (s *BlotterService) Get(ctx context.Context, id string) (*models.BlotterCase, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "blotter case")
	}
	return record, nil
}

// List returns cases matching the query.
func (s *BlotterService) List(ctx context.Context, query dto.BlotterQuery) ([]models.BlotterCase, *models.Pagination, error) {
	page, size := pageBounds(query.Page, query.PageSize)
	records, total, err := s.repo.List(ctx, models.BlotterFilter{
		Status: query.Status,
		Search: strings.TrimSpace(query.Search),
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blotter cases")
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateStatus moves a case forward. Resolved cases cannot be reopened.
func (s *BlotterService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*models.BlotterCase, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	target, err := BlotterWorkflow.Parse(req.Status)
	if err != nil {
		return nil, err
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	remarks := optionalString(req.Remarks)
	var resolvedAt *time.Time
	at, err := runTransition(ctx, s.runner, BlotterWorkflow, transitionRequest[models.BlotterStatus]{
		Actor:    actor,
		RecordID: record.ID,
		From:     record.Status,
		To:       target,
		Reason:   req.Remarks,
		Persist: func(ctx context.Context, tx *sqlx.Tx, _ models.WorkflowAction, at time.Time) error {
			if target == models.BlotterStatusResolved {
				resolvedAt = &at
			}
			return s.repo.UpdateStatusTx(ctx, tx, repository.UpdateBlotterStatusParams{
				ID:         record.ID,
				From:       record.Status,
				To:         target,
				Remarks:    remarks,
				UpdatedAt:  at,
				ResolvedAt: resolvedAt,
			})
		},
	})
	if err != nil {
		return nil, err
	}
	record.Status = target
	record.UpdatedAt = at
	record.ResolvedAt = resolvedAt
	if remarks != nil {
		record.Remarks = remarks
	}
	return record, nil
}

// AssignOfficial sets the active official handling an unresolved case.
func (s *BlotterService) AssignOfficial(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignOfficialRequest) (*models.BlotterCase, error) {
	req.OfficialID = strings.TrimSpace(req.OfficialID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid assignment payload")
	}
	if err := s.gate.CanApprove(ctx, actor, models.ActionAssign); err != nil {
		return nil, err
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if BlotterWorkflow.IsTerminal(record.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "resolved cases cannot be reassigned")
	}
	official, err := s.officials.GetByID(ctx, req.OfficialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithFields(appErrors.ErrValidation, "official not found", map[string]string{"official_id": "exists"})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load official")
	}
	if !official.Active {
		return nil, appErrors.WithFields(appErrors.ErrValidation, "official is not active", map[string]string{"official_id": "active"})
	}

	at := s.runner.now()
	if err := s.repo.AssignOfficial(ctx, record.ID, official.ID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "resolved cases cannot be reassigned")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign official")
	}
	record.OfficialAssignedID = &official.ID
	record.OfficialAssignedName = &official.FullName
	record.UpdatedAt = at

	s.runner.emit(ctx, models.DomainEvent{
		Type:       models.EventAssigned,
		Kind:       models.KindBlotter,
		RecordID:   record.ID,
		ActorID:    actor.UserID,
		Data:       map[string]string{"official_id": official.ID, "official_name": official.FullName},
		OccurredAt: at,
	})
	return record, nil
}

func partyLabel(residentID, name *string) string {
	if name != nil {
		return *name
	}
	if residentID != nil {
		return *residentID
	}
	return ""
}
