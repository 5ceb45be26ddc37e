package dto

// UpdateStatusRequest moves a blotter case or incident report to a new status.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Remarks string `json:"remarks" validate:"max=500"`
}

// ApprovalQuery selects which kinds the approval queue returns.
type ApprovalQuery struct {
	Type string `form:"type"`
}
