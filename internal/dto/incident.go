package dto

import "github.com/noah-isme/barangay-api/internal/models"

// CreateIncidentRequest records a new incident report.
type CreateIncidentRequest struct {
	Title              string  `json:"title" validate:"required,max=200"`
	Description        string  `json:"description"`
	Location           string  `json:"location" validate:"max=255"`
	ReportingOfficerID *string `json:"reporting_officer_id"`
}

// IncidentQuery mirrors supported listing filters.
type IncidentQuery struct {
	Status   []models.IncidentStatus
	Search   string
	Page     int
	PageSize int
}
