package models

import (
	"encoding/json"
	"time"
)

// QueuePayload is the kind-specific part of a queue entry. The set of
// implementations is closed to this package.
type QueuePayload interface {
	queueKind() RecordKind
}

// CertificateQueuePayload describes a pending certificate request.
type CertificateQueuePayload struct {
	ResidentID      string            `json:"resident_id"`
	ResidentName    string            `json:"resident_name"`
	CertificateType string            `json:"certificate_type"`
	Purpose         string            `json:"purpose"`
	Status          CertificateStatus `json:"status"`
}

func (CertificateQueuePayload) queueKind() RecordKind { return KindCertificate }

// BlotterQueuePayload describes an open or ongoing blotter case.
type BlotterQueuePayload struct {
	CaseNumber     string        `json:"case_number"`
	Complainant    string        `json:"complainant"`
	Respondent     string        `json:"respondent"`
	Status         BlotterStatus `json:"status"`
	AssignedToName string        `json:"assigned_to_name,omitempty"`
}

func (BlotterQueuePayload) queueKind() RecordKind { return KindBlotter }

// IncidentQueuePayload describes an incident that is not yet resolved.
type IncidentQueuePayload struct {
	Location             string         `json:"location,omitempty"`
	Status               IncidentStatus `json:"status"`
	ReportingOfficerName string         `json:"reporting_officer_name,omitempty"`
}

func (IncidentQueuePayload) queueKind() RecordKind { return KindIncident }

// QueueEntry is a read-only projection of a pending record. Its kind is
// derived from the payload type, so it cannot drift after projection.
type QueueEntry struct {
	ID              string
	Title           string
	Subtitle        string
	RequestedByName string
	RequestedAt     time.Time
	PayloadRef      string
	Payload         QueuePayload
}

// Kind returns the record kind carried by the payload.
func (e QueueEntry) Kind() RecordKind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.queueKind()
}

// MarshalJSON flattens the entry with its kind tag.
func (e QueueEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID              string       `json:"id"`
		Kind            RecordKind   `json:"kind"`
		Title           string       `json:"title"`
		Subtitle        string       `json:"subtitle"`
		RequestedByName string       `json:"requested_by_name"`
		RequestedAt     time.Time    `json:"requested_at"`
		PayloadRef      string       `json:"payload_ref"`
		Payload         QueuePayload `json:"payload"`
	}{
		ID:              e.ID,
		Kind:            e.Kind(),
		Title:           e.Title,
		Subtitle:        e.Subtitle,
		RequestedByName: e.RequestedByName,
		RequestedAt:     e.RequestedAt,
		PayloadRef:      e.PayloadRef,
		Payload:         e.Payload,
	})
}

// QueueStats counts pending records per kind before any filter is applied.
type QueueStats struct {
	TotalPending int `json:"total_pending"`
	Certificates int `json:"certificates"`
	Blotters     int `json:"blotters"`
	Incidents    int `json:"incidents"`
}

// Add tallies one entry of the given kind.
func (s *QueueStats) Add(kind RecordKind) {
	switch kind {
	case KindCertificate:
		s.Certificates++
	case KindBlotter:
		s.Blotters++
	case KindIncident:
		s.Incidents++
	default:
		return
	}
	s.TotalPending++
}

// Count returns the tally for one kind.
func (s QueueStats) Count(kind RecordKind) int {
	switch kind {
	case KindCertificate:
		return s.Certificates
	case KindBlotter:
		return s.Blotters
	case KindIncident:
		return s.Incidents
	}
	return 0
}
