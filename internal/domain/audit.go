package domain

import "time"

// AuditEntry represents a single audit log record.
type AuditEntry struct {
	ID            string
	PrincipalName string
	Action        string
	ResourceType  *string
	ResourceName  *string
	Status        string // "OK", "DENIED", "ERROR"
	ErrorMessage  *string
	DurationMs    *int64
	CreatedAt     time.Time
}
