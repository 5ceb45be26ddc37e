package dto

import "github.com/noah-isme/barangay-api/internal/models"

// CreateBlotterRequest files a new blotter case. For each party exactly one of
// the resident id or the free-text name must be provided.
type CreateBlotterRequest struct {
	ComplainantResidentID *string `json:"complainant_resident_id"`
	ComplainantName       *string `json:"complainant_name" validate:"omitempty,max=150"`
	RespondentResidentID  *string `json:"respondent_resident_id"`
	RespondentName        *string `json:"respondent_name" validate:"omitempty,max=150"`
	Narrative             string  `json:"narrative" validate:"required"`
}

// AssignOfficialRequest assigns a handling official to a blotter case.
type AssignOfficialRequest struct {
	OfficialID string `json:"official_id" validate:"required"`
}

// BlotterQuery mirrors supported listing filters.
type BlotterQuery struct {
	Status   []models.BlotterStatus
	Search   string
	Page     int
	PageSize int
}
