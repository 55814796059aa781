package service

import (
	"context"
	"time"

	"event-service/internal/domain"

	log "github.com/sirupsen/logrus"
)

type AuditPublisher interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

// AuditService records event mutations on the audit topic. A nil service
// or publisher is a no-op so audit can be disabled in dev setups.
type AuditService struct {
	publisher AuditPublisher
}

func NewAuditService(publisher AuditPublisher) *AuditService {
	return &AuditService{publisher: publisher}
}

func (s *AuditService) record(ctx context.Context, eventType, entityID, actor string, payload map[string]interface{}) {
	if s == nil || s.publisher == nil {
		return
	}

	event := domain.AuditEvent{
		Service:    "event-service",
		EventType:  eventType,
		EntityID:   entityID,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"entity_id":  entityID,
		}).Error("Failed to publish audit event")
	}
}

func (s *AuditService) RecordEventCreated(ctx context.Context, event *domain.Event, actor string) {
	if event == nil {
		return
	}
	s.record(ctx, domain.AuditEventCreated, event.ID, actor, map[string]interface{}{
		"title":      event.Title,
		"event_type": event.EventType,
		"status":     event.Status,
	})
}

func (s *AuditService) RecordTitleChanged(ctx context.Context, eventID, title, actor string) {
	s.record(ctx, domain.AuditEventTitleChanged, eventID, actor, map[string]interface{}{
		"title": title,
	})
}

func (s *AuditService) RecordTypeChanged(ctx context.Context, eventID, eventType, actor string) {
	s.record(ctx, domain.AuditEventTypeChanged, eventID, actor, map[string]interface{}{
		"event_type": eventType,
	})
}

func (s *AuditService) RecordStatusChanged(ctx context.Context, eventID, status, actor string) {
	s.record(ctx, domain.AuditEventStatusChanged, eventID, actor, map[string]interface{}{
		"status": status,
	})
}

func (s *AuditService) RecordEventDeleted(ctx context.Context, eventID, actor string) {
	s.record(ctx, domain.AuditEventDeleted, eventID, actor, nil)
}

func (s *AuditService) RecordSampleUploaded(ctx context.Context, sample *domain.Sample) {
	if sample == nil {
		return
	}
	s.record(ctx, domain.AuditSampleUploaded, sample.EventID, sample.Analyst, map[string]interface{}{
		"sample_id": sample.ID,
		"filename":  sample.Filename,
		"md5":       sample.MD5,
		"size":      sample.Size,
	})
}
