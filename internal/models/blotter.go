package models

import "time"

// BlotterStatus captures the lifecycle of a blotter case.
type BlotterStatus string

const (
	BlotterStatusOpen     BlotterStatus = "Open"
	BlotterStatusOngoing  BlotterStatus = "Ongoing"
	BlotterStatusResolved BlotterStatus = "Resolved"
)

// BlotterCase is an official complaint log entry. Each party is either a
// registered resident or a free-text name, never both.
type BlotterCase struct {
	ID                    string        `db:"id" json:"id"`
	CaseNumber            string        `db:"case_number" json:"case_number"`
	ComplainantResidentID *string       `db:"complainant_resident_id" json:"complainant_resident_id,omitempty"`
	ComplainantName       *string       `db:"complainant_name" json:"complainant_name,omitempty"`
	ComplainantLabel      string        `db:"complainant_label" json:"complainant_label"`
	RespondentResidentID  *string       `db:"respondent_resident_id" json:"respondent_resident_id,omitempty"`
	RespondentName        *string       `db:"respondent_name" json:"respondent_name,omitempty"`
	RespondentLabel       string        `db:"respondent_label" json:"respondent_label"`
	Narrative             string        `db:"narrative" json:"narrative"`
	Status                BlotterStatus `db:"status" json:"status"`
	OfficialAssignedID    *string       `db:"official_assigned_id" json:"official_assigned_id,omitempty"`
	OfficialAssignedName  *string       `db:"official_assigned_name" json:"official_assigned_name,omitempty"`
	Remarks               *string       `db:"remarks" json:"remarks,omitempty"`
	CreatedBy             string        `db:"created_by" json:"created_by"`
	CreatedByName         string        `db:"created_by_name" json:"created_by_name"`
	CreatedAt             time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time     `db:"updated_at" json:"updated_at"`
	ResolvedAt            *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
}

// BlotterFilter constrains listing queries.
type BlotterFilter struct {
	Status []BlotterStatus
	Search string
	Limit  int
	Offset int
}
