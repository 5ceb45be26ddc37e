package models

import "time"

// CertificateStatus captures workflow states for certificate requests.
type CertificateStatus string

const (
	CertificateStatusPending  CertificateStatus = "pending"
	CertificateStatusApproved CertificateStatus = "approved"
	CertificateStatusRejected CertificateStatus = "rejected"
	CertificateStatusReleased CertificateStatus = "released"
)

// CertificateRequest is a resident's request for an official document.
type CertificateRequest struct {
	ID              string            `db:"id" json:"id"`
	ResidentID      string            `db:"resident_id" json:"resident_id"`
	ResidentName    string            `db:"resident_name" json:"resident_name"`
	CertificateType string            `db:"certificate_type" json:"certificate_type"`
	Purpose         string            `db:"purpose" json:"purpose"`
	Status          CertificateStatus `db:"status" json:"status"`
	RequestedBy     string            `db:"requested_by" json:"requested_by"`
	RequestedByName string            `db:"requested_by_name" json:"requested_by_name"`
	RequestedAt     time.Time         `db:"requested_at" json:"requested_at"`
	ApprovedBy      *string           `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time        `db:"approved_at" json:"approved_at,omitempty"`
	Remarks         *string           `db:"remarks" json:"remarks,omitempty"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// CertificateRequestFilter constrains listing queries.
type CertificateRequestFilter struct {
	Status          []CertificateStatus
	ResidentID      string
	CertificateType string
	Limit           int
	Offset          int
}

// IssuedCertificate is the immutable record of a released certificate. Only
// the validity flag and revocation metadata change after insert.
type IssuedCertificate struct {
	ID                string     `db:"id" json:"id"`
	SourceRequestID   string     `db:"source_request_id" json:"source_request_id"`
	CertificateNumber string     `db:"certificate_number" json:"certificate_number"`
	CertificateType   string     `db:"certificate_type" json:"certificate_type"`
	ResidentID        string     `db:"resident_id" json:"resident_id"`
	QRPayload         string     `db:"qr_payload" json:"qr_payload"`
	ValidFrom         time.Time  `db:"valid_from" json:"valid_from"`
	ValidUntil        time.Time  `db:"valid_until" json:"valid_until"`
	IsValid           bool       `db:"is_valid" json:"is_valid"`
	RevokedAt         *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedBy         *string    `db:"revoked_by" json:"revoked_by,omitempty"`
	RevocationReason  *string    `db:"revocation_reason" json:"revocation_reason,omitempty"`
	IssuedAt          time.Time  `db:"issued_at" json:"issued_at"`
	IssuedBy          string     `db:"issued_by" json:"issued_by"`
	SignerName        string     `db:"signer_name" json:"signer_name"`
	PDFPath           *string    `db:"pdf_path" json:"pdf_path,omitempty"`
}

// IssuanceResult wraps an issued certificate with how it was produced.
type IssuanceResult struct {
	Certificate *IssuedCertificate `json:"certificate"`
	Existing    bool               `json:"existing"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// VerificationStatus is the public verdict for a scanned certificate.
type VerificationStatus string

const (
	VerificationValid   VerificationStatus = "valid"
	VerificationRevoked VerificationStatus = "revoked"
	VerificationExpired VerificationStatus = "expired"
)

// VerificationResult is returned by the public verification endpoint.
type VerificationResult struct {
	Status            VerificationStatus `json:"status"`
	CertificateNumber string             `json:"certificate_number"`
	CertificateType   string             `json:"certificate_type"`
	IssuedAt          time.Time          `json:"issued_at"`
	ValidUntil        time.Time          `json:"valid_until"`
	SignerName        string             `json:"signer_name"`
	RevokedAt         *time.Time         `json:"revoked_at,omitempty"`
}
