package models

import (
	"strings"
	"time"
)

// RecordKind identifies which record source an item belongs to.
type RecordKind string

const (
	KindCertificate RecordKind = "certificate"
	KindBlotter     RecordKind = "blotter"
	KindIncident    RecordKind = "incident"
)

// RecordKinds lists every kind in queue source order.
var RecordKinds = []RecordKind{KindCertificate, KindBlotter, KindIncident}

// ParseQueueFilter maps the ?type= query value to a kind. An empty kind means
// no filter; ok is false for unknown values.
func ParseQueueFilter(raw string) (kind RecordKind, ok bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "", "all":
		return "", true
	case string(KindCertificate), string(KindBlotter), string(KindIncident):
		return RecordKind(value), true
	}
	return "", false
}

// WorkflowAction names the authority action a transition requires.
type WorkflowAction string

const (
	ActionApprove      WorkflowAction = "approve"
	ActionReject       WorkflowAction = "reject"
	ActionRelease      WorkflowAction = "release"
	ActionUpdateStatus WorkflowAction = "update_status"
	ActionAssign       WorkflowAction = "assign"
	ActionRevoke       WorkflowAction = "revoke"
)

// DomainEventType enumerates notifications emitted by the workflow.
type DomainEventType string

const (
	EventCreated       DomainEventType = "created"
	EventStatusChanged DomainEventType = "status_changed"
	EventAssigned      DomainEventType = "assigned"
	EventIssued        DomainEventType = "issued"
	EventRevoked       DomainEventType = "revoked"
)

// DomainEvent is handed to the notification sink after a change commits.
type DomainEvent struct {
	ID         string            `json:"id"`
	Type       DomainEventType   `json:"type"`
	Kind       RecordKind        `json:"kind"`
	RecordID   string            `json:"record_id"`
	ActorID    string            `json:"actor_id,omitempty"`
	From       string            `json:"from,omitempty"`
	To         string            `json:"to,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Notification is the persisted, append-only form of a domain event.
type Notification struct {
	ID         string    `db:"id" json:"id"`
	EventType  string    `db:"event_type" json:"event_type"`
	RecordKind string    `db:"record_kind" json:"record_kind"`
	RecordID   string    `db:"record_id" json:"record_id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Payload    []byte    `db:"payload" json:"payload"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
