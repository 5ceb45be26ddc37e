package dto

import "time"

// CreateOfficialRequest registers a barangay official.
type CreateOfficialRequest struct {
	FullName  string     `json:"full_name" validate:"required,max=150"`
	Position  string     `json:"position" validate:"required,max=100"`
	RoleKey   string     `json:"role_key" validate:"required,max=50"`
	Active    bool       `json:"active"`
	TermStart *time.Time `json:"term_start"`
	TermEnd   *time.Time `json:"term_end"`
}

// UpdateOfficialRequest applies a partial update; nil fields are unchanged.
type UpdateOfficialRequest struct {
	FullName  *string    `json:"full_name" validate:"omitempty,max=150"`
	Position  *string    `json:"position" validate:"omitempty,max=100"`
	Active    *bool      `json:"active"`
	TermStart *time.Time `json:"term_start"`
	TermEnd   *time.Time `json:"term_end"`
}

// UploadSignatureRequest records where a signature image was stored.
type UploadSignatureRequest struct {
	SignaturePath string `json:"signature_path" validate:"required,max=500"`
}
