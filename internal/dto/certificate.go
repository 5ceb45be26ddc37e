package dto

import "github.com/noah-isme/barangay-api/internal/models"

// CreateCertificateRequest payload for filing a certificate request.
type CreateCertificateRequest struct {
	ResidentID      string `json:"resident_id" validate:"required"`
	CertificateType string `json:"certificate_type" validate:"required,max=100"`
	Purpose         string `json:"purpose" validate:"required,max=255"`
}

// ApproveCertificateRequest carries optional approval remarks.
type ApproveCertificateRequest struct {
	Remarks string `json:"remarks" validate:"max=500"`
}

// RejectCertificateRequest requires the reason shown to the requester.
type RejectCertificateRequest struct {
	Remarks string `json:"remarks" validate:"required,max=500"`
}

// RevokeCertificateRequest requires a revocation reason.
type RevokeCertificateRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CertificateQuery mirrors supported listing filters.
type CertificateQuery struct {
	Status     []models.CertificateStatus
	ResidentID string
	Type       string
	Page       int
	PageSize   int
}
