package models

import "time"

// IssueRequest is the payload for issuing a single diploma.
type IssueRequest struct {
	StudentName  string `json:"student_name" validate:"required"`
	StudentEmail string `json:"student_email" validate:"required,email"`
	DegreeName   string `json:"degree_name" validate:"required"`
}

// IssueResponse returns the id assigned by the authority.
type IssueResponse struct {
	DiplomaID string `json:"diploma_id"`
}

// BulkRowStatus is the outcome of one bulk row.
type BulkRowStatus string

const (
	BulkRowSuccess BulkRowStatus = "success"
	BulkRowFailed  BulkRowStatus = "failed"
)

// BulkOutcome describes one processed bulk row. Row is the 1-based data row number.
type BulkOutcome struct {
	Row       int           `json:"row"`
	Status    BulkRowStatus `json:"status"`
	DiplomaID string        `json:"diploma_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// BulkReport summarises a bulk issuance. Details follow input order.
type BulkReport struct {
	Total     int           `json:"total"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Details   []BulkOutcome `json:"details"`
	ReportURL string        `json:"report_url,omitempty"`
	ExpiresAt *time.Time    `json:"report_expires_at,omitempty"`
}

// Recount derives the counters from Details.
func (r *BulkReport) Recount() {
	r.Total, r.Success, r.Failed = len(r.Details), 0, 0
	for _, d := range r.Details {
		if d.Status == BulkRowSuccess {
			r.Success++
		} else {
			r.Failed++
		}
	}
}

// RevokeRequest is the HTTP body for revocation.
type RevokeRequest struct {
	Confirm bool `json:"confirm"`
}

// RevocationAck confirms that a diploma is revoked.
type RevocationAck struct {
	ID             string `json:"id"`
	Revoked        bool   `json:"revoked"`
	AlreadyRevoked bool   `json:"already_revoked"`
	Message        string `json:"message"`
}
