package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded by the gateway.
const (
	AuditActionLogin      = "LOGIN"
	AuditActionLogout     = "LOGOUT"
	AuditActionIssue      = "DIPLOMA_ISSUE"
	AuditActionIssueBulk  = "DIPLOMA_ISSUE_BULK"
	AuditActionRevoke     = "DIPLOMA_REVOKE"
	AuditActionShare      = "DIPLOMA_SHARE"
	AuditActionExport     = "DIPLOMA_EXPORT"
	AuditResourceDiploma  = "diploma"
	AuditResourceSession  = "session"
	AuditResourceBulkFile = "bulk_file"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	ActorEmail *string         `db:"actor_email" json:"actor_email,omitempty"`
	ActorRole  string          `db:"actor_role" json:"actor_role"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	RequestID  string          `db:"request_id" json:"request_id"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
