package service

import (
	"context"
	"database/sql"
	"errors"
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

type incidentStore interface {
	Create(ctx context.Context, report *models.IncidentReport) error
	GetByID(ctx context.Context, id string) (*models.IncidentReport, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]models.IncidentReport, int, error)
	UpdateStatusTx(ctx context.Context, exec sqlx.ExtContext, params repository.UpdateIncidentStatusParams) error
}

// IncidentService records incident reports and tracks their follow-up.
type IncidentService struct {
	repo      incidentStore
	officials officialReader
	runner    *TransitionRunner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIncidentService constructs the service.
func NewIncidentService(repo incidentStore, officials officialReader, runner *TransitionRunner, logger *zap.Logger) *IncidentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentService{repo: repo, officials: officials, runner: runner, validator: newValidator(), logger: logger}
}

// Create records a report in the Recorded state.
func (s *IncidentService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateIncidentRequest) (*models.IncidentReport, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	req.ReportingOfficerID = trimmedPtr(req.ReportingOfficerID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid incident payload")
	}

	now := s.runner.now()
	report := &models.IncidentReport{
		ID:                 uuid.NewString(),
		Title:              req.Title,
		Description:        strings.TrimSpace(req.Description),
		Location:           req.Location,
		Status:             models.IncidentStatusRecorded,
		ReportingOfficerID: req.ReportingOfficerID,
		CreatedBy:          actor.UserID,
		CreatedByName:      actor.FullName,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.ReportingOfficerID != nil {
		official, err := s.officials.GetByID(ctx, *req.ReportingOfficerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.WithFields(appErrors.ErrValidation, "reporting officer not found", map[string]string{"reporting_officer_id": "exists"})
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reporting officer")
		}
		report.ReportingOfficerName = &official.FullName
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incident report")
	}
	s.runner.emit(ctx, models.DomainEvent{
		Type:     models.EventCreated,
		Kind:     models.KindIncident,
		RecordID: report.ID,
		ActorID:  actor.UserID,
		To:       string(report.Status),
	})
	return report, nil
}

// Get returns a report by id.
func (s *IncidentService) Get(ctx context.Context, id string) (*models.IncidentReport, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "incident report")
	}
	return report, nil
}

// List returns reports matching the query.
func (s *IncidentService) List(ctx context.Context, query dto.IncidentQuery) ([]models.IncidentReport, *models.Pagination, error) {
	page, size := pageBounds(query.Page, query.PageSize)
	reports, total, err := s.repo.List(ctx, models.IncidentFilter{
		Status: query.Status,
		Search: strings.TrimSpace(query.Search),
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incident reports")
	}
	return reports, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateStatus moves a report from Recorded to Monitoring to Resolved.
func (s *IncidentService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*models.IncidentReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	target, err := IncidentWorkflow.Parse(req.Status)
	if err != nil {
		return nil, err
	}
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	remarks := optionalString(req.Remarks)
	var resolvedAt *time.Time
	at, err := runTransition(ctx, s.runner, IncidentWorkflow, transitionRequest[models.IncidentStatus]{
		Actor:    actor,
		RecordID: report.ID,
		From:     report.Status,
		To:       target,
		Reason:   req.Remarks,
		Persist: func(ctx context.Context, tx *sqlx.Tx, _ models.WorkflowAction, at time.Time) error {
			if target == models.IncidentStatusResolved {
				resolvedAt = &at
			}
			return s.repo.UpdateStatusTx(ctx, tx, repository.UpdateIncidentStatusParams{
				ID:         report.ID,
				From:       report.Status,
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
	report.Status = target
	report.UpdatedAt = at
	report.ResolvedAt = resolvedAt
	if remarks != nil {
		report.Remarks = remarks
	}
	return report, nil
}
