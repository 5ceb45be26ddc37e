package models

import "time"

// IncidentStatus captures the lifecycle of an incident report.
type IncidentStatus string

const (
	IncidentStatusRecorded   IncidentStatus = "Recorded"
	IncidentStatusMonitoring IncidentStatus = "Monitoring"
	IncidentStatusResolved   IncidentStatus = "Resolved"
)

// IncidentReport records an occurrence in the barangay.
type IncidentReport struct {
	ID                   string         `db:"id" json:"id"`
	Title                string         `db:"title" json:"title"`
	Description          string         `db:"description" json:"description"`
	Location             string         `db:"location" json:"location"`
	Status               IncidentStatus `db:"status" json:"status"`
	ReportingOfficerID   *string        `db:"reporting_officer_id" json:"reporting_officer_id,omitempty"`
	ReportingOfficerName *string        `db:"reporting_officer_name" json:"reporting_officer_name,omitempty"`
	Remarks              *string        `db:"remarks" json:"remarks,omitempty"`
	CreatedBy            string         `db:"created_by" json:"created_by"`
	CreatedByName        string         `db:"created_by_name" json:"created_by_name"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	ResolvedAt           *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
}

// IncidentFilter constrains listing queries.
type IncidentFilter struct {
	Status []IncidentStatus
	Search string
	Limit  int
	Offset int
}
