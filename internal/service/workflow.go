package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/pkg/cache"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
)

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type eventSink interface {
	Emit(ctx context.Context, event models.DomainEvent)
}

type approvalGate interface {
	CanApprove(ctx context.Context, actor *models.JWTClaims, action models.WorkflowAction) error
}

type workflowMetrics interface {
	RecordTransition(kind models.RecordKind, from, to string)
	RecordRejection(kind models.RecordKind, reason string)
}

// TransitionRunner applies status changes for every record kind: it checks
// the transition table, re-checks authority, persists inside one transaction
// and emits the domain event once the change is committed.
type TransitionRunner struct {
	gate    approvalGate
	tx      txRunner
	locker  cache.Locker
	sink    eventSink
	metrics workflowMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewTransitionRunner wires the runner. A nil locker falls back to an
// in-process lock.
func NewTransitionRunner(gate approvalGate, tx txRunner, locker cache.Locker, sink eventSink, metrics workflowMetrics, logger *zap.Logger) *TransitionRunner {
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionRunner{
		gate:    gate,
		tx:      tx,
		locker:  locker,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// persistFunc performs the writes of one transition inside tx.
type persistFunc func(ctx context.Context, tx *sqlx.Tx, action models.WorkflowAction, at time.Time) error

type transitionRequest[S ~string] struct {
	Actor    *models.JWTClaims
	RecordID string
	From     S
	To       S
	Reason   string

	// At overrides the transition timestamp.
	At time.Time
	// LockKey, when set, is held across the whole transaction.
	LockKey string
	// Event defaults to status_changed.
	Event     models.DomainEventType
	EventData func() map[string]string

	Persist     persistFunc
	AfterCommit func(ctx context.Context)
}

// runTransition is the single path every status change goes through. Nothing
// is written when the edge is unknown, the actor lacks authority or the row
// moved since it was read.
func runTransition[S ~string](ctx context.Context, r *TransitionRunner, machine *StateMachine[S], req transitionRequest[S]) (time.Time, error) {
	kind := machine.Kind()
	action, err := machine.Action(req.From, req.To)
	if err != nil {
		r.metrics.RecordRejection(kind, "invalid_transition")
		return time.Time{}, err
	}
	if err := r.gate.CanApprove(ctx, req.Actor, action); err != nil {
		r.metrics.RecordRejection(kind, rejectionReason(err))
		return time.Time{}, err
	}

	at := req.At
	if at.IsZero() {
		at = r.now()
	}

	if req.LockKey != "" {
		release, err := r.locker.Acquire(ctx, req.LockKey)
		if err != nil {
			r.metrics.RecordRejection(kind, "lock")
			if errors.Is(err, cache.ErrLockNotObtained) {
				return time.Time{}, appErrors.Clone(appErrors.ErrConflict, "another request is being processed, please retry")
			}
			return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire lock")
		}
		defer release()
	}

	err = r.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return req.Persist(ctx, tx, action, at)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.metrics.RecordRejection(kind, "stale")
			return time.Time{}, appErrors.Clone(appErrors.ErrInvalidTransition, string(kind)+" is no longer "+string(req.From))
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return time.Time{}, appErr
		}
		r.logger.Error("transition failed", zap.String("kind", string(kind)), zap.String("id", req.RecordID), zap.Error(err))
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update "+string(kind))
	}

	r.metrics.RecordTransition(kind, string(req.From), string(req.To))
	r.logger.Info("workflow transition",
		zap.String("kind", string(kind)),
		zap.String("id", req.RecordID),
		zap.String("from", string(req.From)),
		zap.String("to", string(req.To)),
		zap.String("actor", req.Actor.UserID),
	)

	if req.AfterCommit != nil {
		req.AfterCommit(ctx)
	}

	event := models.DomainEvent{
		Type:       req.Event,
		Kind:       kind,
		RecordID:   req.RecordID,
		ActorID:    req.Actor.UserID,
		From:       string(req.From),
		To:         string(req.To),
		Reason:     req.Reason,
		OccurredAt: at,
	}
	if event.Type == "" {
		event.Type = models.EventStatusChanged
	}
	if req.EventData != nil {
		event.Data = req.EventData()
	}
	r.emit(ctx, event)
	return at, nil
}

// withLockedTx runs fn in a transaction while holding key.
func (r *TransitionRunner) withLockedTx(ctx context.Context, key string, fn func(tx *sqlx.Tx) error) error {
	release, err := r.locker.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotObtained) {
			return appErrors.Clone(appErrors.ErrConflict, "another request is being processed, please retry")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire lock")
	}
	defer release()
	return r.tx.WithinTx(ctx, fn)
}

func (r *TransitionRunner) emit(ctx context.Context, event models.DomainEvent) {
	if r.sink == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now()
	}
	r.sink.Emit(ctx, event)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, appErrors.ErrMissingSignature):
		return "missing_signature"
	case errors.Is(err, appErrors.ErrUnauthorized), errors.Is(err, appErrors.ErrForbidden):
		return "forbidden"
	default:
		return "gate_error"
	}
}

// mapLookupError turns a repository read failure into a typed error.
func mapLookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

func actorID(actor *models.JWTClaims) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}
