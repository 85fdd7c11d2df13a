package models

import (
	"context"
	"time"
)

// AuditAction constants represent deposit actions recorded in the audit trail.
const (
	AuditActionDepositCreate  = "DEPOSIT_CREATE"
	AuditActionDepositUpdate  = "DEPOSIT_UPDATE"
	AuditActionDepositDelete  = "DEPOSIT_DELETE"
	AuditActionDepositPublish = "DEPOSIT_PUBLISH"
	AuditActionFileUpload     = "FILE_UPLOAD"
	AuditActionFileRename     = "FILE_RENAME"
	AuditActionFileReorder    = "FILE_REORDER"
	AuditActionFileDelete     = "FILE_DELETE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditOrigin identifies the client a mutation came from.
type AuditOrigin struct {
	IPAddress string
	UserAgent string
}

type auditOriginKey struct{}

// WithAuditOrigin returns a context carrying origin.
func WithAuditOrigin(ctx context.Context, origin AuditOrigin) context.Context {
	return context.WithValue(ctx, auditOriginKey{}, origin)
}

// AuditOriginFrom extracts the origin stored by WithAuditOrigin.
func AuditOriginFrom(ctx context.Context) (AuditOrigin, bool) {
	if ctx == nil {
		return AuditOrigin{}, false
	}
	origin, ok := ctx.Value(auditOriginKey{}).(AuditOrigin)
	return origin, ok
}
