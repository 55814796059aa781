package domain

import (
	"errors"
	"time"
)

// Event errors
var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEmptyTitle            = errors.New("title must not be empty")
	ErrInvalidEventType      = errors.New("invalid event type")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrSourceRequired        = errors.New("missing source information")
	ErrReleasabilityExists   = errors.New("releasability already present")
	ErrReleasabilityNotFound = errors.New("releasability not found")
	ErrForbidden             = errors.New("operation not permitted")
)

// Event status constants
const (
	StatusNew        = "New"
	StatusInProgress = "In Progress"
	StatusAnalyzed   = "Analyzed"
	StatusDeprecated = "Deprecated"
)

// TypeEvent is the collection tag used for subscriptions, favorites,
// relationships and notifications that point at an Event.
const TypeEvent = "Event"

// ValidStatuses returns the list of valid event statuses
func ValidStatuses() []string {
	return []string{StatusNew, StatusInProgress, StatusAnalyzed, StatusDeprecated}
}

// ValidStatus reports whether s is a known event status.
func ValidStatus(s string) bool {
	for _, v := range ValidStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// SourceInstance records one acquisition of the event from a source.
type SourceInstance struct {
	Date      time.Time `json:"date"`
	Method    string    `json:"method,omitempty"`
	Reference string    `json:"reference,omitempty"`
	Analyst   string    `json:"analyst"`
}

type Source struct {
	Name      string           `json:"name"`
	Instances []SourceInstance `json:"instances"`
}

type Releasability struct {
	Name    string    `json:"name"`
	Analyst string    `json:"analyst"`
	Date    time.Time `json:"date"`
}

type Ticket struct {
	TicketNumber string    `json:"ticket_number"`
	Analyst      string    `json:"analyst"`
	Date         time.Time `json:"date"`
}

type Campaign struct {
	Name       string    `json:"name"`
	Confidence string    `json:"confidence"`
	Analyst    string    `json:"analyst"`
	Date       time.Time `json:"date"`
}

type Location struct {
	Name         string    `json:"name"`
	LocationType string    `json:"location_type"`
	Latitude     string    `json:"latitude,omitempty"`
	Longitude    string    `json:"longitude,omitempty"`
	Analyst      string    `json:"analyst"`
	Date         time.Time `json:"date"`
}

// Relationship links the event to another top-level entity by type and id.
type Relationship struct {
	TargetType   string    `json:"target_type"`
	TargetID     string    `json:"target_id"`
	Relationship string    `json:"relationship"`
	Confidence   string    `json:"confidence,omitempty"`
	Analyst      string    `json:"analyst"`
	Date         time.Time `json:"date"`
}

type EventObject struct {
	ID         string    `json:"id"`
	ObjectType string    `json:"object_type"`
	Value      string    `json:"value"`
	Source     string    `json:"source"`
	Analyst    string    `json:"analyst"`
	Date       time.Time `json:"date"`
}

type Comment struct {
	ID      string    `json:"id"`
	Analyst string    `json:"analyst"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}

type AnalysisResult struct {
	ID          string    `json:"id"`
	ServiceName string    `json:"service_name"`
	Version     string    `json:"version"`
	Status      string    `json:"status"`
	Results     string    `json:"results"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

type Event struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	EventType      string           `json:"event_type"`
	Description    string           `json:"description"`
	Status         string           `json:"status"`
	Sectors        []string         `json:"sectors"`
	BucketList     []string         `json:"bucket_list"`
	Sources        []Source         `json:"sources"`
	Releasability  []Releasability  `json:"releasability"`
	Tickets        []Ticket         `json:"tickets"`
	Campaigns      []Campaign       `json:"campaigns"`
	Locations      []Location       `json:"locations"`
	Relationships  []Relationship   `json:"relationships"`
	Objects        []EventObject    `json:"objects"`
	Comments       []Comment        `json:"comments"`
	Samples        []Sample         `json:"samples"`
	ServiceResults []AnalysisResult `json:"service_results"`
	Created        time.Time        `json:"created"`
	Modified       time.Time        `json:"modified"`
}

// HasSource reports whether the event carries at least one of the given
// source names. Access to an event is granted through its sources.
func (e *Event) HasSource(names []string) bool {
	for _, s := range e.Sources {
		for _, n := range names {
			if s.Name == n {
				return true
			}
		}
	}
	return false
}

type CreateEventRequest struct {
	Title       string `json:"title"`
	EventType   string `json:"event_type"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Method      string `json:"method"`
	Reference   string `json:"reference"`
	BucketList  string `json:"bucket_list"`
	Ticket      string `json:"ticket"`
}

// UpdateEventFields drives the dynamic UPDATE in the repository; nil
// fields are left untouched.
type UpdateEventFields struct {
	Title       *string
	EventType   *string
	Status      *string
	Description *string
}

type UpdateTitleRequest struct {
	Title string `json:"title"`
}

type UpdateTypeRequest struct {
	EventType string `json:"event_type"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AddCommentRequest struct {
	Text string `json:"text"`
}

type AddReleasabilityRequest struct {
	Name string `json:"name"`
}

type AddSourceRequest struct {
	Name      string `json:"name"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type AddTicketRequest struct {
	TicketNumber string `json:"ticket_number"`
}

type AddCampaignRequest struct {
	Name       string `json:"name"`
	Confidence string `json:"confidence"`
}

type AddLocationRequest struct {
	Name         string `json:"name"`
	LocationType string `json:"location_type"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
}

type AddRelationshipRequest struct {
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	Relationship string `json:"relationship"`
	Confidence   string `json:"confidence"`
}

type AddObjectRequest struct {
	ObjectType string `json:"object_type"`
	Value      string `json:"value"`
	Source     string `json:"source"`
}

type AddBucketsRequest struct {
	Buckets string `json:"buckets"` // comma separated
}

type SetSectorsRequest struct {
	Sectors []string `json:"sectors"`
}

type AddAnalysisResultRequest struct {
	ServiceName string `json:"service_name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
	Results     string `json:"results"`
}

type DownloadRequest struct {
	ObjectIDs []string `json:"object_ids"`
	SampleIDs []string `json:"sample_ids"`
}

// Subscription is the view-model handed to the subscription widget.
type Subscription struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Subscribed bool   `json:"subscribed"`
}

// DownloadForm backs the hidden download modal on the detail page.
type DownloadForm struct {
	Action  string
	Objects []EventObject
	Samples []Sample
}

// EventDetail is everything the detail page template consumes.
type EventDetail struct {
	Event        *Event
	Subscription Subscription
	Favorite     bool
	Admin        bool
	Analyst      string
	DownloadForm DownloadForm
}
