package service

import (
	"archive/zip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"event-service/internal/domain"
	"event-service/internal/vocab"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	log "github.com/sirupsen/logrus"
)

type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, sources []string, limit, offset int) ([]domain.Event, error)
	Update(ctx context.Context, eventID string, fields *domain.UpdateEventFields) error
	Delete(ctx context.Context, id string) error
	SetSectors(ctx context.Context, eventID string, sectors []string) error
	AddBuckets(ctx context.Context, eventID string, buckets []string) error
	AddSource(ctx context.Context, eventID, name string, inst domain.SourceInstance) error
	AddReleasability(ctx context.Context, eventID string, item domain.Releasability) error
	RemoveReleasability(ctx context.Context, eventID, name string) error
	AddTicket(ctx context.Context, eventID string, ticket domain.Ticket) error
	AddCampaign(ctx context.Context, eventID string, campaign domain.Campaign) error
	AddLocation(ctx context.Context, eventID string, location domain.Location) error
	AddRelationship(ctx context.Context, eventID string, rel domain.Relationship) error
	AddObject(ctx context.Context, eventID string, object domain.EventObject) error
	GetObjectsByIDs(ctx context.Context, eventID string, ids []string) ([]domain.EventObject, error)
	AddComment(ctx context.Context, eventID string, comment domain.Comment) error
	AddAnalysisResult(ctx context.Context, eventID string, result domain.AnalysisResult) error
}

type SampleRepository interface {
	Create(ctx context.Context, sample *domain.Sample, data []byte) error
	ListByEvent(ctx context.Context, eventID string) ([]domain.Sample, error)
	GetByMD5(ctx context.Context, eventID, md5 string) (*domain.Sample, error)
	GetByID(ctx context.Context, eventID, id string) (*domain.Sample, error)
	GetData(ctx context.Context, storageKey string) ([]byte, error)
}

type Notifier interface {
	IsSubscribed(ctx context.Context, username, entityType, id string) (bool, error)
	ToggleSubscription(ctx context.Context, username, entityType, id string) (bool, error)
	IsFavorite(ctx context.Context, username, entityType, id string) (bool, error)
	ToggleFavorite(ctx context.Context, username, entityType, id string) (bool, error)
	NotifySubscribers(ctx context.Context, actor, entityType, id, message string) error
	ClearNotifications(ctx context.Context, username, entityType, id string) error
}

type EventServiceInterface interface {
	CreateEvent(ctx context.Context, req domain.CreateEventRequest, analyst string) (*domain.Event, error)
	GetEventDetail(ctx context.Context, id string, user *domain.User) (*domain.EventDetail, error)
	ListEvents(ctx context.Context, user *domain.User, limit, offset int) ([]domain.Event, error)
	UpdateTitle(ctx context.Context, id, title, analyst string) error
	UpdateType(ctx context.Context, id, eventType, analyst string) error
	UpdateStatus(ctx context.Context, id, status, analyst string) error
	EventTypeOptions() []string
	DeleteEvent(ctx context.Context, id string, user *domain.User) error
	UploadSample(ctx context.Context, eventID, filename, source, analyst string, data []byte) (*domain.Sample, error)
	WriteDownload(ctx context.Context, eventID string, req domain.DownloadRequest, w io.Writer) (string, error)
	AddComment(ctx context.Context, eventID, text, analyst string) (*domain.Comment, error)
	AddReleasability(ctx context.Context, eventID, name, analyst string) error
	RemoveReleasability(ctx context.Context, eventID, name string) error
	AddSource(ctx context.Context, eventID string, req domain.AddSourceRequest, analyst string) error
	AddTicket(ctx context.Context, eventID, ticketNumber, analyst string) error
	AddCampaign(ctx context.Context, eventID string, req domain.AddCampaignRequest, analyst string) error
	AddLocation(ctx context.Context, eventID string, req domain.AddLocationRequest, analyst string) error
	AddRelationship(ctx context.Context, eventID string, req domain.AddRelationshipRequest, analyst string) error
	AddObject(ctx context.Context, eventID string, req domain.AddObjectRequest, analyst string) (*domain.EventObject, error)
	AddBuckets(ctx context.Context, eventID, buckets string) error
	SetSectors(ctx context.Context, eventID string, sectors []string) error
	AddAnalysisResult(ctx context.Context, eventID string, req domain.AddAnalysisResultRequest) (*domain.AnalysisResult, error)
	ToggleSubscription(ctx context.Context, eventID, analyst string) (bool, error)
	ToggleFavorite(ctx context.Context, eventID, analyst string) (bool, error)
}

type EventService struct {
	eventRepository  EventRepository
	sampleRepository SampleRepository
	notifier         Notifier
	audit            *AuditService
}

func NewEventService(eventRepository EventRepository, sampleRepository SampleRepository, notifier Notifier, audit *AuditService) *EventService {
	return &EventService{
		eventRepository:  eventRepository,
		sampleRepository: sampleRepository,
		notifier:         notifier,
		audit:            audit,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, req domain.CreateEventRequest, analyst string) (*domain.Event, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.ErrEmptyTitle
	}
	if !vocab.ValidEventType(req.EventType) {
		return nil, domain.ErrInvalidEventType
	}
	if strings.TrimSpace(req.Source) == "" {
		return nil, domain.ErrSourceRequired
	}

	now := time.Now().UTC()
	event := &domain.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		EventType:   req.EventType,
		Description: req.Description,
		Status:      domain.StatusNew,
		BucketList:  splitTerms(req.BucketList),
		Sources: []domain.Source{{
			Name: req.Source,
			Instances: []domain.SourceInstance{{
				Date:      now,
				Method:    req.Method,
				Reference: req.Reference,
				Analyst:   analyst,
			}},
		}},
		Created:  now,
		Modified: now,
	}

	if ticket := strings.TrimSpace(req.Ticket); ticket != "" {
		event.Tickets = []domain.Ticket{{TicketNumber: ticket, Analyst: analyst, Date: now}}
	}

	if err := s.eventRepository.Create(ctx, event); err != nil {
		log.WithError(err).WithField("title", req.Title).Error("Failed to create event")
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	for _, t := range event.Tickets {
		if err := s.eventRepository.AddTicket(ctx, event.ID, t); err != nil {
			return nil, err
		}
	}

	s.audit.RecordEventCreated(ctx, event, analyst)

	log.WithFields(log.Fields{
		"event_id":   event.ID,
		"event_type": event.EventType,
	}).Info("Event successfully created")

	return event, nil
}

// GetEventDetail assembles everything the detail page needs: the event
// with its child collections, the viewer's subscription and favorite
// state, and the download form. Viewing clears pending notifications.
func (s *EventService) GetEventDetail(ctx context.Context, id string, user *domain.User) (*domain.EventDetail, error) {
	if id == "" {
		return nil, domain.ErrEventNotFound
	}

	event, err := s.eventRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.Admin && !event.HasSource(user.Sources) {
		return nil, domain.ErrForbidden
	}

	samples, err := s.sampleRepository.ListByEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Samples = samples

	subscribed, err := s.notifier.IsSubscribed(ctx, user.Username, domain.TypeEvent, id)
	if err != nil {
		log.WithError(err).WithField("event_id", id).Warn("Could not read subscription state")
	}
	favorite, err := s.notifier.IsFavorite(ctx, user.Username, domain.TypeEvent, id)
	if err != nil {
		log.WithError(err).WithField("event_id", id).Warn("Could not read favorite state")
	}

	if err := s.notifier.ClearNotifications(ctx, user.Username, domain.TypeEvent, id); err != nil {
		log.WithError(err).WithField("event_id", id).Warn("Could not clear pending notifications")
	}

	return &domain.EventDetail{
		Event: event,
		Subscription: domain.Subscription{
			Type:       domain.TypeEvent,
			ID:         id,
			Subscribed: subscribed,
		},
		Favorite: favorite,
		Admin:    user.Admin,
		Analyst:  user.Username,
		DownloadForm: domain.DownloadForm{
			Action:  fmt.Sprintf("/api/events/%s/download", id),
			Objects: event.Objects,
			Samples: samples,
		},
	}, nil
}

// ListEvents returns the events visible to the user. Admins see
// everything; analysts only see events carrying one of their sources.
func (s *EventService) ListEvents(ctx context.Context, user *domain.User, limit, offset int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	sources := user.Sources
	if user.Admin {
		sources = nil
	} else if len(sources) == 0 {
		return []domain.Event{}, nil
	}

	events, err := s.eventRepository.List(ctx, sources, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

func (s *EventService) UpdateTitle(ctx context.Context, id, title, analyst string) error {
	if strings.TrimSpace(title) == "" {
		return domain.ErrEmptyTitle
	}

	if err := s.eventRepository.Update(ctx, id, &domain.UpdateEventFields{Title: &title}); err != nil {
		return err
	}

	s.audit.RecordTitleChanged(ctx, id, title, analyst)
	s.notifyChange(ctx, analyst, id, "title updated")

	log.WithField("event_id", id).Info("Event title successfully updated")
	return nil
}

func (s *EventService) UpdateType(ctx context.Context, id, eventType, analyst string) error {
	if !vocab.ValidEventType(eventType) {
		return domain.ErrInvalidEventType
	}

	if err := s.eventRepository.Update(ctx, id, &domain.UpdateEventFields{EventType: &eventType}); err != nil {
		return err
	}

	s.audit.RecordTypeChanged(ctx, id, eventType, analyst)
	s.notifyChange(ctx, analyst, id, "type updated")

	log.WithFields(log.Fields{
		"event_id":   id,
		"event_type": eventType,
	}).Info("Event type successfully updated")
	return nil
}

func (s *EventService) UpdateStatus(ctx context.Context, id, status, analyst string) error {
	if !domain.ValidStatus(status) {
		return domain.ErrInvalidStatus
	}

	if err := s.eventRepository.Update(ctx, id, &domain.UpdateEventFields{Status: &status}); err != nil {
		return err
	}

	s.audit.RecordStatusChanged(ctx, id, status, analyst)
	s.notifyChange(ctx, analyst, id, "status set to "+status)

	log.WithFields(log.Fields{
		"event_id": id,
		"status":   status,
	}).Info("Event status successfully updated")
	return nil
}

func (s *EventService) EventTypeOptions() []string {
	return vocab.EventTypes()
}

func (s *EventService) DeleteEvent(ctx context.Context, id string, user *domain.User) error {
	if !user.Admin {
		return domain.ErrForbidden
	}

	if err := s.eventRepository.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.RecordEventDeleted(ctx, id, user.Username)

	log.WithFields(log.Fields{
		"event_id": id,
		"analyst":  user.Username,
	}).Info("Event successfully deleted")
	return nil
}

// UploadSample attaches a file to the event. Uploads are de-duplicated
// by md5 within the event, matching the original ingest behavior.
func (s *EventService) UploadSample(ctx context.Context, eventID, filename, source, analyst string, data []byte) (*domain.Sample, error) {
	if len(data) == 0 {
		return nil, domain.ErrEmptySample
	}
	if strings.TrimSpace(source) == "" {
		return nil, domain.ErrSourceRequired
	}

	if _, err := s.eventRepository.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	sum := md5.Sum(data)
	digest := hex.EncodeToString(sum[:])

	if existing, err := s.sampleRepository.GetByMD5(ctx, eventID, digest); err == nil && existing != nil {
		return nil, domain.ErrDuplicateSample
	}

	sample := &domain.Sample{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Filename:   filename,
		MD5:        digest,
		Size:       int64(len(data)),
		StorageKey: ksuid.New().String(),
		Source:     source,
		Analyst:    analyst,
		Created:    time.Now().UTC(),
	}

	if err := s.sampleRepository.Create(ctx, sample, data); err != nil {
		return nil, err
	}

	s.audit.RecordSampleUploaded(ctx, sample)
	s.notifyChange(ctx, analyst, eventID, "sample uploaded: "+filename)

	return sample, nil
}

// WriteDownload streams a zip with the selected objects and samples and
// returns the suggested filename.
func (s *EventService) WriteDownload(ctx context.Context, eventID string, req domain.DownloadRequest, w io.Writer) (string, error) {
	event, err := s.eventRepository.GetByID(ctx, eventID)
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(w)

	if len(req.ObjectIDs) > 0 {
		objects, err := s.eventRepository.GetObjectsByIDs(ctx, eventID, req.ObjectIDs)
		if err != nil {
			return "", err
		}
		for _, o := range objects {
			f, err := zw.Create(fmt.Sprintf("objects/%s.txt", o.ID))
			if err != nil {
				return "", fmt.Errorf("failed to add object to archive: %w", err)
			}
			if _, err := fmt.Fprintf(f, "%s: %s\n", o.ObjectType, o.Value); err != nil {
				return "", fmt.Errorf("failed to write object to archive: %w", err)
			}
		}
	}

	for _, id := range req.SampleIDs {
		sample, err := s.sampleRepository.GetByID(ctx, eventID, id)
		if err != nil {
			return "", err
		}
		data, err := s.sampleRepository.GetData(ctx, sample.StorageKey)
		if err != nil {
			return "", err
		}
		f, err := zw.Create("samples/" + sample.Filename)
		if err != nil {
			return "", fmt.Errorf("failed to add sample to archive: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			return "", fmt.Errorf("failed to write sample to archive: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}

	return fmt.Sprintf("event-%s.zip", event.ID), nil
}

func (s *EventService) AddComment(ctx context.Context, eventID, text, analyst string) (*domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("comment text is required")
	}

	comment := domain.Comment{
		ID:      uuid.NewString(),
		Analyst: analyst,
		Text:    text,
		Created: time.Now().UTC(),
	}

	if err := s.eventRepository.AddComment(ctx, eventID, comment); err != nil {
		return nil, err
	}

	s.notifyChange(ctx, analyst, eventID, "comment added")
	return &comment, nil
}

func (s *EventService) AddReleasability(ctx context.Context, eventID, name, analyst string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("releasability name is required")
	}

	item := domain.Releasability{
		Name:    name,
		Analyst: analyst,
		Date:    time.Now().UTC(),
	}
	return s.eventRepository.AddReleasability(ctx, eventID, item)
}

func (s *EventService) RemoveReleasability(ctx context.Context, eventID, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("releasability name is required")
	}
	return s.eventRepository.RemoveReleasability(ctx, eventID, name)
}

func (s *EventService) AddSource(ctx context.Context, eventID string, req domain.AddSourceRequest, analyst string) error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.ErrSourceRequired
	}

	inst := domain.SourceInstance{
		Date:      time.Now().UTC(),
		Method:    req.Method,
		Reference: req.Reference,
		Analyst:   analyst,
	}
	return s.eventRepository.AddSource(ctx, eventID, req.Name, inst)
}

func (s *EventService) AddTicket(ctx context.Context, eventID, ticketNumber, analyst string) error {
	if strings.TrimSpace(ticketNumber) == "" {
		return fmt.Errorf("ticket number is required")
	}

	ticket := domain.Ticket{
		TicketNumber: ticketNumber,
		Analyst:      analyst,
		Date:         time.Now().UTC(),
	}
	return s.eventRepository.AddTicket(ctx, eventID, ticket)
}

func (s *EventService) AddCampaign(ctx context.Context, eventID string, req domain.AddCampaignRequest, analyst string) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("campaign name is required")
	}
	if req.Confidence != "" && !vocab.ValidConfidence(req.Confidence) {
		return fmt.Errorf("invalid campaign confidence")
	}

	campaign := domain.Campaign{
		Name:       req.Name,
		Confidence: req.Confidence,
		Analyst:    analyst,
		Date:       time.Now().UTC(),
	}
	return s.eventRepository.AddCampaign(ctx, eventID, campaign)
}

func (s *EventService) AddLocation(ctx context.Context, eventID string, req domain.AddLocationRequest, analyst string) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("location name is required")
	}

	location := domain.Location{
		Name:         req.Name,
		LocationType: req.LocationType,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Analyst:      analyst,
		Date:         time.Now().UTC(),
	}
	return s.eventRepository.AddLocation(ctx, eventID, location)
}

func (s *EventService) AddRelationship(ctx context.Context, eventID string, req domain.AddRelationshipRequest, analyst string) error {
	if req.TargetType == "" || req.TargetID == "" {
		return fmt.Errorf("relationship target is required")
	}

	relationship := req.Relationship
	if relationship == "" {
		relationship = "Related To"
	}

	rel := domain.Relationship{
		TargetType:   req.TargetType,
		TargetID:     req.TargetID,
		Relationship: relationship,
		Confidence:   req.Confidence,
		Analyst:      analyst,
		Date:         time.Now().UTC(),
	}
	return s.eventRepository.AddRelationship(ctx, eventID, rel)
}

func (s *EventService) AddObject(ctx context.Context, eventID string, req domain.AddObjectRequest, analyst string) (*domain.EventObject, error) {
	if req.ObjectType == "" || req.Value == "" {
		return nil, fmt.Errorf("object type and value are required")
	}

	object := domain.EventObject{
		ID:         uuid.NewString(),
		ObjectType: req.ObjectType,
		Value:      req.Value,
		Source:     req.Source,
		Analyst:    analyst,
		Date:       time.Now().UTC(),
	}

	if err := s.eventRepository.AddObject(ctx, eventID, object); err != nil {
		return nil, err
	}
	return &object, nil
}

func (s *EventService) AddBuckets(ctx context.Context, eventID, buckets string) error {
	terms := splitTerms(buckets)
	if len(terms) == 0 {
		return fmt.Errorf("no bucket list terms provided")
	}
	return s.eventRepository.AddBuckets(ctx, eventID, terms)
}

func (s *EventService) SetSectors(ctx context.Context, eventID string, sectors []string) error {
	for _, sector := range sectors {
		if !vocab.ValidSector(sector) {
			return fmt.Errorf("invalid sector: %s", sector)
		}
	}
	return s.eventRepository.SetSectors(ctx, eventID, sectors)
}

func (s *EventService) AddAnalysisResult(ctx context.Context, eventID string, req domain.AddAnalysisResultRequest) (*domain.AnalysisResult, error) {
	if req.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}

	now := time.Now().UTC()
	result := domain.AnalysisResult{
		ID:          uuid.NewString(),
		ServiceName: req.ServiceName,
		Version:     req.Version,
		Status:      req.Status,
		Results:     req.Results,
		StartedAt:   now,
		FinishedAt:  now,
	}

	if err := s.eventRepository.AddAnalysisResult(ctx, eventID, result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *EventService) ToggleSubscription(ctx context.Context, eventID, analyst string) (bool, error) {
	if _, err := s.eventRepository.GetByID(ctx, eventID); err != nil {
		return false, err
	}
	return s.notifier.ToggleSubscription(ctx, analyst, domain.TypeEvent, eventID)
}

func (s *EventService) ToggleFavorite(ctx context.Context, eventID, analyst string) (bool, error) {
	if _, err := s.eventRepository.GetByID(ctx, eventID); err != nil {
		return false, err
	}
	return s.notifier.ToggleFavorite(ctx, analyst, domain.TypeEvent, eventID)
}

func (s *EventService) notifyChange(ctx context.Context, actor, eventID, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifySubscribers(ctx, actor, domain.TypeEvent, eventID, message); err != nil {
		log.WithError(err).WithField("event_id", eventID).Warn("Could not notify subscribers")
	}
}

// splitTerms splits a comma separated term list, trimming whitespace and
// dropping empties.
func splitTerms(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
