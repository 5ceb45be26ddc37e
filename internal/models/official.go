package models

import "time"

// Official is a barangay office holder. Officials whose role key is
// configured as a singleton may have at most one active holder.
type Official struct {
	ID            string     `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"full_name"`
	Position      string     `db:"position" json:"position"`
	RoleKey       string     `db:"role_key" json:"role_key"`
	Active        bool       `db:"active" json:"active"`
	SignaturePath *string    `db:"signature_path" json:"signature_path,omitempty"`
	TermStart     *time.Time `db:"term_start" json:"term_start,omitempty"`
	TermEnd       *time.Time `db:"term_end" json:"term_end,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// OfficialFilter constrains listing queries.
type OfficialFilter struct {
	RoleKey string
	Active  *bool
}

// BarangayProfile holds barangay-wide settings, including the fallback signer.
type BarangayProfile struct {
	ID                   string  `db:"id" json:"id"`
	Name                 string  `db:"name" json:"name"`
	Municipality         string  `db:"municipality" json:"municipality"`
	Province             string  `db:"province" json:"province"`
	CaptainName          *string `db:"captain_name" json:"captain_name,omitempty"`
	CaptainSignaturePath *string `db:"captain_signature_path" json:"captain_signature_path,omitempty"`
}
