package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/prairieworks/grainledger-backend/pkg/enums"
)

// AuditRecord is an append-only log entry for a ticket mutation. Rows are
// never updated; they are removed only by the FK cascade when their ticket is
// hard-deleted.
type AuditRecord struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TicketID  uuid.UUID         `gorm:"column:ticket_id;type:uuid;not null;index" json:"ticket_id"`
	Action    enums.AuditAction `gorm:"column:action;type:audit_action;not null" json:"action"`
	Before    json.RawMessage   `gorm:"column:before;type:jsonb" json:"before,omitempty"`
	After     json.RawMessage   `gorm:"column:after;type:jsonb" json:"after,omitempty"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
