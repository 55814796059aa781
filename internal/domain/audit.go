package domain

import "time"

// Audit event types emitted by this service.
const (
	AuditEventCreated       = "event_created"
	AuditEventTitleChanged  = "event_title_changed"
	AuditEventTypeChanged   = "event_type_changed"
	AuditEventStatusChanged = "event_status_changed"
	AuditEventDeleted       = "event_deleted"
	AuditSampleUploaded     = "event_sample_uploaded"
)

type AuditEvent struct {
	Service    string                 `json:"service"`
	EventType  string                 `json:"event_type"`
	EntityID   string                 `json:"entity_id"`
	Actor      string                 `json:"actor,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}
