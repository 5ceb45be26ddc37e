package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/barangay-api/internal/dto"
	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type officialStore interface {
	GetByID(ctx context.Context, id string) (*models.Official, error)
	List(ctx context.Context, filter models.OfficialFilter) ([]models.Official, error)
	CreateTx(ctx context.Context, exec sqlx.ExtContext, official *models.Official) error
	GetForUpdateTx(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Official, error)
	UpdateTx(ctx context.Context, exec sqlx.ExtContext, official *models.Official) error
	Deactivate(ctx context.Context, id string) error
	SetSignature(ctx context.Context, id, path string) error
}

// OfficialService manages barangay officials and their signatures.
type OfficialService struct {
	repo      officialStore
	guard     *UniquenessGuard
	tx        txRunner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfficialService constructs the service.
func NewOfficialService(repo officialStore, guard *UniquenessGuard, tx txRunner, logger *zap.Logger) *OfficialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficialService{repo: repo, guard: guard, tx: tx, validator: newValidator(), logger: logger}
}

// List returns officials matching the filter.
func (s *OfficialService) List(ctx context.Context, filter models.OfficialFilter) ([]models.Official, error) {
	officials, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list officials")
	}
	return officials, nil
}

// Get returns one official.
func (s *OfficialService) Get(ctx context.Context, id string) (*models.Official, error) {
	official, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "official")
	}
	return official, nil
}

// Create registers an official. Creating an active holder of a singleton role
// that is already held fails with ErrAlreadyHeld.
func (s *OfficialService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateOfficialRequest) (*models.Official, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Position = strings.TrimSpace(req.Position)
	req.RoleKey = strings.ToUpper(strings.TrimSpace(req.RoleKey))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid official payload")
	}
	official := &models.Official{
		ID:        uuid.NewString(),
		FullName:  req.FullName,
		Position:  req.Position,
		RoleKey:   req.RoleKey,
		Active:    req.Active,
		TermStart: req.TermStart,
		TermEnd:   req.TermEnd,
	}
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.guardActivation(ctx, tx, official); err != nil {
			return err
		}
		return s.repo.CreateTx(ctx, tx, official)
	})
	if err != nil {
		return nil, s.mapWriteError(err, "failed to create official")
	}
	s.logger.Info("official created", zap.String("id", official.ID), zap.String("role_key", official.RoleKey), zap.Bool("active", official.Active))
	return official, nil
}

// Update applies a partial update. Activating a singleton role holder runs
// the same check as Create.
func (s *OfficialService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateOfficialRequest) (*models.Official, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	req.FullName = trimmedPtr(req.FullName)
	req.Position = trimmedPtr(req.Position)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid official payload")
	}

	var updated *models.Official
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		official, err := s.repo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.FullName != nil {
			official.FullName = *req.FullName
		}
		if req.Position != nil {
			official.Position = *req.Position
		}
		if req.TermStart != nil {
			official.TermStart = req.TermStart
		}
		if req.TermEnd != nil {
			official.TermEnd = req.TermEnd
		}
		if req.Active != nil {
			official.Active = *req.Active
		}
		if err := s.guardActivation(ctx, tx, official); err != nil {
			return err
		}
		if err := s.repo.UpdateTx(ctx, tx, official); err != nil {
			return err
		}
		updated = official
		return nil
	})
	if err != nil {
		return nil, s.mapWriteError(err, "failed to update official")
	}
	return updated, nil
}

// Deactivate ends an official's active tenure, freeing a singleton role.
func (s *OfficialService) Deactivate(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return s.mapWriteError(err, "failed to deactivate official")
	}
	return nil
}

// UploadSignature records the stored signature image of an official. The
// authority gate sees it on the next check.
func (s *OfficialService) UploadSignature(ctx context.Context, actor *models.JWTClaims, id string, req dto.UploadSignatureRequest) (*models.Official, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	req.SignaturePath = strings.TrimSpace(req.SignaturePath)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid signature payload")
	}
	if err := s.repo.SetSignature(ctx, id, req.SignaturePath); err != nil {
		return nil, s.mapWriteError(err, "failed to store signature")
	}
	return s.Get(ctx, id)
}

func (s *OfficialService) guardActivation(ctx context.Context, tx *sqlx.Tx, official *models.Official) error {
	if !official.Active {
		return nil
	}
	return s.guard.AssertSingletonActive(ctx, tx, official.RoleKey, official.ID)
}

func (s *OfficialService) authorize(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.IsAuthority() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the barangay captain or an administrator may manage officials")
	}
	return nil
}

func (s *OfficialService) mapWriteError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "official not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
