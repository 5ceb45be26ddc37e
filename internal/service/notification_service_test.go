package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/pkg/config"
)

type notificationStoreStub struct {
	mu      sync.Mutex
	records []*models.Notification
	err     error
}

func (s *notificationStoreStub) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, n)
	return nil
}

type publisherStub struct {
	delivered chan []byte
	err       error
}

func (p *publisherStub) Publish(ctx context.Context, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.delivered <- payload
	return nil
}

func TestNotificationServicePersistsAndPublishes(t *testing.T) {
	store := &notificationStoreStub{}
	publisher := &publisherStub{delivered: make(chan []byte, 1)}
	svc := NewNotificationService(store, publisher, config.NotificationsConfig{Workers: 1, BufferSize: 4}, nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Emit(context.Background(), models.DomainEvent{
		Type:     models.EventIssued,
		Kind:     models.KindCertificate,
		RecordID: "req-1",
		ActorID:  "user-captain",
		Data:     map[string]string{"certificate_number": "BC-2024-0042"},
	})

	require.Len(t, store.records, 1)
	record := store.records[0]
	assert.Equal(t, "issued", record.EventType)
	assert.Equal(t, "certificate", record.RecordKind)
	require.NotNil(t, record.ActorID)
	assert.NotEmpty(t, record.ID)

	select {
	case payload := <-publisher.delivered:
		var event models.DomainEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		assert.Equal(t, "BC-2024-0042", event.Data["certificate_number"])
		assert.Equal(t, record.ID, event.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestNotificationServiceSwallowsFailures(t *testing.T) {
	store := &notificationStoreStub{err: errors.New("disk full")}
	metrics := &metricsRecorder{}
	svc := NewNotificationService(store, &publisherStub{err: errors.New("redis down")}, config.NotificationsConfig{}, metrics, nil)

	// Not started: enqueue fails as well.
	assert.NotPanics(t, func() {
		svc.Emit(context.Background(), models.DomainEvent{Type: models.EventCreated, Kind: models.KindBlotter, RecordID: "blt-1"})
	})
	assert.Equal(t, []string{"persist", "enqueue"}, metrics.notify)
}

func TestNotificationServiceWithoutPublisher(t *testing.T) {
	store := &notificationStoreStub{}
	svc := NewNotificationService(store, nil, config.NotificationsConfig{}, nil, nil)
	svc.Start(context.Background())
	svc.Emit(context.Background(), models.DomainEvent{Type: models.EventCreated, Kind: models.KindIncident, RecordID: "inc-1"})
	svc.Stop()

	assert.Len(t, store.records, 1)
}
