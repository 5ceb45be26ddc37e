package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/barangay-api/internal/models"
)

// restorable stores roll back to their snapshot when a fake transaction fails.
type restorable interface {
	snapshot() (restore func())
}

type fakeTx struct {
	stores    []restorable
	commits   int32
	rollbacks int32
}

func newFakeTx(stores ...restorable) *fakeTx {
	return &fakeTx{stores: stores}
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	restores := make([]func(), 0, len(f.stores))
	for _, store := range f.stores {
		restores = append(restores, store.snapshot())
	}
	if err := fn(nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		atomic.AddInt32(&f.rollbacks, 1)
		return err
	}
	atomic.AddInt32(&f.commits, 1)
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (r *eventRecorder) Emit(ctx context.Context, event models.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []models.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.DomainEvent(nil), r.events...)
}

type gateStub struct {
	err     error
	actions []models.WorkflowAction
}

func (g *gateStub) CanApprove(ctx context.Context, actor *models.JWTClaims, action models.WorkflowAction) error {
	g.actions = append(g.actions, action)
	return g.err
}

type metricsRecorder struct {
	mu          sync.Mutex
	transitions []string
	rejections  []string
	projection  []models.RecordKind
	issued      []string
	renders     int
	notify      []string
	pending     models.QueueStats
}

func (m *metricsRecorder) RecordTransition(kind models.RecordKind, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, string(kind)+":"+from+"->"+to)
}

func (m *metricsRecorder) RecordRejection(kind models.RecordKind, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, string(kind)+":"+reason)
}

func (m *metricsRecorder) RecordProjectionFailure(kind models.RecordKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projection = append(m.projection, kind)
}

func (m *metricsRecorder) SetQueuePending(stats models.QueueStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = stats
}

func (m *metricsRecorder) RecordIssued(certificateType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued = append(m.issued, certificateType)
}

func (m *metricsRecorder) RecordRenderFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renders++
}

func (m *metricsRecorder) RecordNotificationFailure(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = append(m.notify, stage)
}
