package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/pkg/config"
	"github.com/noah-isme/barangay-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// EventPublisher delivers a serialised domain event to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

type notificationMetrics interface {
	RecordNotificationFailure(stage string)
}

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher constructs a publisher for channel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = "barangay:events"
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish implements EventPublisher.
func (p *RedisPublisher) Publish(ctx context.Context, payload []byte) error {
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// NotificationService is the sink for committed domain events. Events are
// appended to the notifications table and fanned out by a background queue.
// Failures are logged and counted but never reach the caller.
type NotificationService struct {
	store     notificationStore
	publisher EventPublisher
	queue     *jobs.Queue
	retries   int
	metrics   notificationMetrics
	logger    *zap.Logger
}

// NewNotificationService constructs the sink. A nil publisher disables fan-out.
func NewNotificationService(store notificationStore, publisher EventPublisher, cfg config.NotificationsConfig, metrics notificationMetrics, logger *zap.Logger) *NotificationService {
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{store: store, publisher: publisher, retries: cfg.MaxRetries, metrics: metrics, logger: logger}
	if publisher != nil {
		s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
			Workers:    cfg.Workers,
			BufferSize: cfg.BufferSize,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: 200 * time.Millisecond,
			Logger:     logger,
		})
	}
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop halts delivery. Events still buffered are dropped.
func (s *NotificationService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Emit records and dispatches an event.
func (s *NotificationService) Emit(ctx context.Context, event models.DomainEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.fail("encode", event, err)
		return
	}

	record := &models.Notification{
		ID:         event.ID,
		EventType:  string(event.Type),
		RecordKind: string(event.Kind),
		RecordID:   event.RecordID,
		Payload:    payload,
		CreatedAt:  event.OccurredAt,
	}
	if event.ActorID != "" {
		actor := event.ActorID
		record.ActorID = &actor
	}
	if s.store != nil {
		if err := s.store.Create(ctx, record); err != nil {
			s.fail("persist", event, err)
		}
	}

	if s.queue == nil {
		return
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: string(event.Type), Payload: payload}); err != nil {
		s.fail("enqueue", event, err)
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	err := s.publisher.Publish(ctx, job.Payload)
	if err != nil && job.Attempt >= s.retries {
		s.metrics.RecordNotificationFailure("deliver")
	}
	return err
}

func (s *NotificationService) fail(stage string, event models.DomainEvent, err error) {
	s.metrics.RecordNotificationFailure(stage)
	s.logger.Warn("notification not delivered",
		zap.String("stage", stage),
		zap.String("event", string(event.Type)),
		zap.String("kind", string(event.Kind)),
		zap.String("record_id", event.RecordID),
		zap.Error(err),
	)
}
