package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/barangay-api/internal/models"
	appErrors "github.com/noah-isme/barangay-api/pkg/errors"
	"github.com/noah-isme/barangay-api/pkg/export"
)

type pendingCertificateSource interface {
	ListPending(ctx context.Context) ([]models.CertificateRequest, error)
}

type pendingBlotterSource interface {
	ListPending(ctx context.Context) ([]models.BlotterCase, error)
}

type pendingIncidentSource interface {
	ListPending(ctx context.Context) ([]models.IncidentReport, error)
}

type queueViewer interface {
	CanViewQueue(actor *models.JWTClaims) bool
}

type queueMetrics interface {
	RecordProjectionFailure(kind models.RecordKind)
	SetQueuePending(stats models.QueueStats)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ApprovalQueue is the merged pending list returned to authorities.
type ApprovalQueue struct {
	Items []models.QueueEntry `json:"items"`
	Stats models.QueueStats   `json:"stats"`
}

// ApprovalService merges pending records of every kind into one queue.
type ApprovalService struct {
	gate         queueViewer
	certificates pendingCertificateSource
	blotters     pendingBlotterSource
	incidents    pendingIncidentSource
	csv          csvRenderer
	metrics      queueMetrics
	logger       *zap.Logger
}

// NewApprovalService constructs the aggregator.
func NewApprovalService(
	gate queueViewer,
	certificates pendingCertificateSource,
	blotters pendingBlotterSource,
	incidents pendingIncidentSource,
	csv csvRenderer,
	metrics queueMetrics,
	logger *zap.Logger,
) *ApprovalService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		gate:         gate,
		certificates: certificates,
		blotters:     blotters,
		incidents:    incidents,
		csv:          csv,
		metrics:      metrics,
		logger:       logger,
	}
}

// ListQueue returns pending items oldest first. Stats always count every
// kind, even when filter narrows the items. A source that fails to load is
// logged and contributes nothing.
func (s *ApprovalService) ListQueue(ctx context.Context, actor *models.JWTClaims, filter string) (*ApprovalQueue, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.gate.CanViewQueue(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the barangay captain or an administrator may view the approval queue")
	}
	kind, ok := models.ParseQueueFilter(filter)
	if !ok {
		return nil, appErrors.WithFields(appErrors.ErrValidation, fmt.Sprintf("unknown queue type %q", filter), map[string]string{"type": "oneof"})
	}

	// Source failures are absorbed in collect so one kind cannot hide the
	// others; the goroutines never return an error.
	var certificates, blotters, incidents []models.QueueEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		certificates = collect(gctx, s, models.KindCertificate, s.certificates.ListPending, projectCertificate)
		return nil
	})
	g.Go(func() error {
		blotters = collect(gctx, s, models.KindBlotter, s.blotters.ListPending, projectBlotter)
		return nil
	})
	g.Go(func() error {
		incidents = collect(gctx, s, models.KindIncident, s.incidents.ListPending, projectIncident)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read approval queue")
	}

	entries := make([]models.QueueEntry, 0, len(certificates)+len(blotters)+len(incidents))
	entries = append(entries, certificates...)
	entries = append(entries, blotters...)
	entries = append(entries, incidents...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RequestedAt.Before(entries[j].RequestedAt)
	})

	var stats models.QueueStats
	for _, entry := range entries {
		stats.Add(entry.Kind())
	}
	s.metrics.SetQueuePending(stats)

	if kind != "" {
		filtered := entries[:0:0]
		for _, entry := range entries {
			if entry.Kind() == kind {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	return &ApprovalQueue{Items: entries, Stats: stats}, nil
}

// ExportQueue renders the queue as CSV using the same filter as ListQueue.
func (s *ApprovalService) ExportQueue(ctx context.Context, actor *models.JWTClaims, filter string) ([]byte, error) {
	queue, err := s.ListQueue(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	table := export.Table{
		Headers: []string{"id", "kind", "title", "subtitle", "requested_by", "requested_at"},
		Rows:    make([][]string, 0, len(queue.Items)),
	}
	for _, entry := range queue.Items {
		table.Rows = append(table.Rows, []string{
			entry.ID,
			string(entry.Kind()),
			entry.Title,
			entry.Subtitle,
			entry.RequestedByName,
			entry.RequestedAt.UTC().Format(time.RFC3339),
		})
	}
	data, err := s.csv.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export approval queue")
	}
	return data, nil
}

func collect[T any](
	ctx context.Context,
	s *ApprovalService,
	kind models.RecordKind,
	load func(context.Context) ([]T, error),
	project func(T) (models.QueueEntry, error),
) []models.QueueEntry {
	records, err := load(ctx)
	if err != nil {
		s.logger.Warn("approval queue source unavailable", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	entries := make([]models.QueueEntry, 0, len(records))
	for _, record := range records {
		entry, err := project(record)
		if err != nil {
			s.metrics.RecordProjectionFailure(kind)
			s.logger.Warn("skipping queue record", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func projectCertificate(req models.CertificateRequest) (models.QueueEntry, error) {
	if req.ID == "" || req.RequestedAt.IsZero() {
		return models.QueueEntry{}, fmt.Errorf("certificate request %q missing id or requested_at", req.ID)
	}
	resident := firstNonEmpty(req.ResidentName, req.ResidentID)
	if resident == "" {
		return models.QueueEntry{}, fmt.Errorf("certificate request %s has no resident", req.ID)
	}
	return models.QueueEntry{
		ID:              req.ID,
		Title:           req.CertificateType,
		Subtitle:        joinNonEmpty(" - ", resident, req.Purpose),
		RequestedByName: req.RequestedByName,
		RequestedAt:     req.RequestedAt,
		PayloadRef:      "certificates/" + req.ID,
		Payload: models.CertificateQueuePayload{
			ResidentID:      req.ResidentID,
			ResidentName:    req.ResidentName,
			CertificateType: req.CertificateType,
			Purpose:         req.Purpose,
			Status:          req.Status,
		},
	}, nil
}

func projectBlotter(c models.BlotterCase) (models.QueueEntry, error) {
	if c.ID == "" || c.CaseNumber == "" || c.CreatedAt.IsZero() {
		return models.QueueEntry{}, fmt.Errorf("blotter case %q missing case number or created_at", c.ID)
	}
	payload := models.BlotterQueuePayload{
		CaseNumber:  c.CaseNumber,
		Complainant: c.ComplainantLabel,
		Respondent:  c.RespondentLabel,
		Status:      c.Status,
	}
	if c.OfficialAssignedName != nil {
		payload.AssignedToName = *c.OfficialAssignedName
	}
	return models.QueueEntry{
		ID:              c.ID,
		Title:           "Blotter " + c.CaseNumber,
		Subtitle:        joinNonEmpty(" vs ", c.ComplainantLabel, c.RespondentLabel),
		RequestedByName: c.CreatedByName,
		RequestedAt:     c.CreatedAt,
		PayloadRef:      "blotters/" + c.ID,
		Payload:         payload,
	}, nil
}

func projectIncident(r models.IncidentReport) (models.QueueEntry, error) {
	if r.ID == "" || r.CreatedAt.IsZero() {
		return models.QueueEntry{}, fmt.Errorf("incident report %q missing id or created_at", r.ID)
	}
	payload := models.IncidentQueuePayload{Location: r.Location, Status: r.Status}
	if r.ReportingOfficerName != nil {
		payload.ReportingOfficerName = *r.ReportingOfficerName
	}
	return models.QueueEntry{
		ID:              r.ID,
		Title:           firstNonEmpty(r.Title, "Incident report"),
		Subtitle:        r.Location,
		RequestedByName: r.CreatedByName,
		RequestedAt:     r.CreatedAt,
		PayloadRef:      "incidents/" + r.ID,
		Payload:         payload,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	return strings.Join(parts, sep)
}
