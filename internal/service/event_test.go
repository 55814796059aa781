package service

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"event-service/internal/domain"
	"event-service/internal/vocab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepository struct {
	events    map[string]*domain.Event
	tickets   map[string][]domain.Ticket
	updates   []domain.UpdateEventFields
	deleted   []string
	listCalls int
}

func newFakeEventRepository(events ...*domain.Event) *fakeEventRepository {
	r := &fakeEventRepository{
		events:  map[string]*domain.Event{},
		tickets: map[string][]domain.Ticket{},
	}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeEventRepository) Create(_ context.Context, event *domain.Event) error {
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepository) GetByID(_ context.Context, id string) (*domain.Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

func (r *fakeEventRepository) List(_ context.Context, sources []string, limit, offset int) ([]domain.Event, error) {
	r.listCalls++
	var out []domain.Event
	for _, e := range r.events {
		if len(sources) == 0 || e.HasSource(sources) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeEventRepository) Update(_ context.Context, eventID string, fields *domain.UpdateEventFields) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	r.updates = append(r.updates, *fields)
	if fields.Title != nil {
		event.Title = *fields.Title
	}
	if fields.EventType != nil {
		event.EventType = *fields.EventType
	}
	if fields.Status != nil {
		event.Status = *fields.Status
	}
	return nil
}

func (r *fakeEventRepository) Delete(_ context.Context, id string) error {
	if _, ok := r.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.events, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeEventRepository) SetSectors(_ context.Context, eventID string, sectors []string) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Sectors = sectors
	return nil
}

func (r *fakeEventRepository) AddBuckets(_ context.Context, eventID string, buckets []string) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.BucketList = append(event.BucketList, buckets...)
	return nil
}

func (r *fakeEventRepository) AddSource(_ context.Context, eventID, name string, inst domain.SourceInstance) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Sources = append(event.Sources, domain.Source{Name: name, Instances: []domain.SourceInstance{inst}})
	return nil
}

func (r *fakeEventRepository) AddReleasability(_ context.Context, eventID string, item domain.Releasability) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	for _, existing := range event.Releasability {
		if existing.Name == item.Name {
			return domain.ErrReleasabilityExists
		}
	}
	event.Releasability = append(event.Releasability, item)
	return nil
}

func (r *fakeEventRepository) RemoveReleasability(_ context.Context, eventID, name string) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	for i, existing := range event.Releasability {
		if existing.Name == name {
			event.Releasability = append(event.Releasability[:i], event.Releasability[i+1:]...)
			return nil
		}
	}
	return domain.ErrReleasabilityNotFound
}

func (r *fakeEventRepository) AddTicket(_ context.Context, eventID string, ticket domain.Ticket) error {
	if _, ok := r.events[eventID]; !ok {
		return domain.ErrEventNotFound
	}
	r.tickets[eventID] = append(r.tickets[eventID], ticket)
	return nil
}

func (r *fakeEventRepository) AddCampaign(_ context.Context, eventID string, campaign domain.Campaign) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Campaigns = append(event.Campaigns, campaign)
	return nil
}

func (r *fakeEventRepository) AddLocation(_ context.Context, eventID string, location domain.Location) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Locations = append(event.Locations, location)
	return nil
}

func (r *fakeEventRepository) AddRelationship(_ context.Context, eventID string, rel domain.Relationship) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Relationships = append(event.Relationships, rel)
	return nil
}

func (r *fakeEventRepository) AddObject(_ context.Context, eventID string, object domain.EventObject) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Objects = append(event.Objects, object)
	return nil
}

func (r *fakeEventRepository) GetObjectsByIDs(_ context.Context, eventID string, ids []string) ([]domain.EventObject, error) {
	event, ok := r.events[eventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.EventObject
	for _, o := range event.Objects {
		if want[o.ID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeEventRepository) AddComment(_ context.Context, eventID string, comment domain.Comment) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Comments = append(event.Comments, comment)
	return nil
}

func (r *fakeEventRepository) AddAnalysisResult(_ context.Context, eventID string, result domain.AnalysisResult) error {
	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.ServiceResults = append(event.ServiceResults, result)
	return nil
}

type fakeSampleRepository struct {
	samples map[string]*domain.Sample // keyed by id
	data    map[string][]byte         // keyed by storage key
}

func newFakeSampleRepository() *fakeSampleRepository {
	return &fakeSampleRepository{
		samples: map[string]*domain.Sample{},
		data:    map[string][]byte{},
	}
}

func (r *fakeSampleRepository) Create(_ context.Context, sample *domain.Sample, data []byte) error {
	r.samples[sample.ID] = sample
	r.data[sample.StorageKey] = data
	return nil
}

func (r *fakeSampleRepository) ListByEvent(_ context.Context, eventID string) ([]domain.Sample, error) {
	var out []domain.Sample
	for _, s := range r.samples {
		if s.EventID == eventID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSampleRepository) GetByMD5(_ context.Context, eventID, md5 string) (*domain.Sample, error) {
	for _, s := range r.samples {
		if s.EventID == eventID && s.MD5 == md5 {
			return s, nil
		}
	}
	return nil, domain.ErrSampleNotFound
}

func (r *fakeSampleRepository) GetByID(_ context.Context, eventID, id string) (*domain.Sample, error) {
	s, ok := r.samples[id]
	if !ok || s.EventID != eventID {
		return nil, domain.ErrSampleNotFound
	}
	return s, nil
}

func (r *fakeSampleRepository) GetData(_ context.Context, storageKey string) ([]byte, error) {
	data, ok := r.data[storageKey]
	if !ok {
		return nil, domain.ErrSampleNotFound
	}
	return data, nil
}

type fakeNotifier struct {
	subscriptions map[string]bool // username|type:id
	favorites     map[string]bool
	cleared       []string
	notified      []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		subscriptions: map[string]bool{},
		favorites:     map[string]bool{},
	}
}

func key(username, entityType, id string) string {
	return username + "|" + entityType + ":" + id
}

func (n *fakeNotifier) IsSubscribed(_ context.Context, username, entityType, id string) (bool, error) {
	return n.subscriptions[key(username, entityType, id)], nil
}

func (n *fakeNotifier) ToggleSubscription(_ context.Context, username, entityType, id string) (bool, error) {
	k := key(username, entityType, id)
	n.subscriptions[k] = !n.subscriptions[k]
	return n.subscriptions[k], nil
}

func (n *fakeNotifier) IsFavorite(_ context.Context, username, entityType, id string) (bool, error) {
	return n.favorites[key(username, entityType, id)], nil
}

func (n *fakeNotifier) ToggleFavorite(_ context.Context, username, entityType, id string) (bool, error) {
	k := key(username, entityType, id)
	n.favorites[k] = !n.favorites[k]
	return n.favorites[k], nil
}

func (n *fakeNotifier) NotifySubscribers(_ context.Context, actor, entityType, id, message string) error {
	n.notified = append(n.notified, entityType+":"+id+" "+message)
	return nil
}

func (n *fakeNotifier) ClearNotifications(_ context.Context, username, entityType, id string) error {
	n.cleared = append(n.cleared, key(username, entityType, id))
	return nil
}

func testEvent() *domain.Event {
	return &domain.Event{
		ID:        "ev-1",
		Title:     "Watering hole campaign",
		EventType: vocab.StrategicWebCompromise,
		Status:    domain.StatusNew,
		Sources: []domain.Source{{
			Name: "OSINT",
			Instances: []domain.SourceInstance{{
				Date:    time.Now().UTC(),
				Analyst: "alice",
			}},
		}},
		Created:  time.Now().UTC(),
		Modified: time.Now().UTC(),
	}
}

func newTestService(events ...*domain.Event) (*EventService, *fakeEventRepository, *fakeSampleRepository, *fakeNotifier) {
	repo := newFakeEventRepository(events...)
	samples := newFakeSampleRepository()
	notify := newFakeNotifier()
	svc := NewEventService(repo, samples, notify, nil)
	return svc, repo, samples, notify
}

func analyst() *domain.User {
	return &domain.User{Username: "alice", Sources: []string{"OSINT"}}
}

func adminUser() *domain.User {
	return &domain.User{Username: "boss", Admin: true}
}

func TestCreateEventValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CreateEvent(context.Background(), domain.CreateEventRequest{
		EventType: vocab.Phishing, Source: "OSINT",
	}, "alice")
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	_, err = svc.CreateEvent(context.Background(), domain.CreateEventRequest{
		Title: "x", EventType: "Nonsense", Source: "OSINT",
	}, "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidEventType)

	_, err = svc.CreateEvent(context.Background(), domain.CreateEventRequest{
		Title: "x", EventType: vocab.Phishing,
	}, "alice")
	assert.ErrorIs(t, err, domain.ErrSourceRequired)
}

func TestCreateEvent(t *testing.T) {
	svc, repo, _, _ := newTestService()

	event, err := svc.CreateEvent(context.Background(), domain.CreateEventRequest{
		Title:      "Spearphish wave",
		EventType:  vocab.Phishing,
		Source:     "Partner Feed",
		Method:     "email",
		BucketList: "apt, finance ,apt2",
		Ticket:     "INC-42",
	}, "alice")

	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, domain.StatusNew, event.Status)
	assert.Equal(t, []string{"apt", "finance", "apt2"}, event.BucketList)
	require.Len(t, event.Sources, 1)
	assert.Equal(t, "Partner Feed", event.Sources[0].Name)
	require.Len(t, event.Sources[0].Instances, 1)
	assert.Equal(t, "alice", event.Sources[0].Instances[0].Analyst)
	require.Len(t, event.Tickets, 1)
	assert.Equal(t, "INC-42", event.Tickets[0].TicketNumber)
	assert.Len(t, repo.tickets[event.ID], 1)

	_, ok := repo.events[event.ID]
	assert.True(t, ok)
}

func TestGetEventDetail(t *testing.T) {
	event := testEvent()
	svc, _, _, notify := newTestService(event)
	notify.subscriptions[key("alice", domain.TypeEvent, "ev-1")] = true

	detail, err := svc.GetEventDetail(context.Background(), "ev-1", analyst())
	require.NoError(t, err)

	assert.Equal(t, event, detail.Event)
	assert.Equal(t, domain.TypeEvent, detail.Subscription.Type)
	assert.Equal(t, "ev-1", detail.Subscription.ID)
	assert.True(t, detail.Subscription.Subscribed)
	assert.False(t, detail.Admin)
	assert.Equal(t, "/api/events/ev-1/download", detail.DownloadForm.Action)

	// viewing clears pending notifications for the viewer
	assert.Contains(t, notify.cleared, key("alice", domain.TypeEvent, "ev-1"))
}

func TestGetEventDetailSourceFilter(t *testing.T) {
	svc, _, _, _ := newTestService(testEvent())

	outsider := &domain.User{Username: "eve", Sources: []string{"Other Feed"}}
	_, err := svc.GetEventDetail(context.Background(), "ev-1", outsider)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// admins bypass the source filter
	_, err = svc.GetEventDetail(context.Background(), "ev-1", adminUser())
	assert.NoError(t, err)
}

func TestGetEventDetailNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetEventDetail(context.Background(), "missing", analyst())
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = svc.GetEventDetail(context.Background(), "", analyst())
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestListEvents(t *testing.T) {
	other := testEvent()
	other.ID = "ev-2"
	other.Sources = []domain.Source{{Name: "Partner Feed"}}
	svc, _, _, _ := newTestService(testEvent(), other)

	// analysts only see events carrying one of their sources
	events, err := svc.ListEvents(context.Background(), analyst(), 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)

	// admins list everything even with an empty source set
	events, err = svc.ListEvents(context.Background(), adminUser(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestListEventsNoSources(t *testing.T) {
	svc, repo, _, _ := newTestService(testEvent())

	nobody := &domain.User{Username: "eve"}
	events, err := svc.ListEvents(context.Background(), nobody, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, repo.listCalls)
}

func TestUpdateTitle(t *testing.T) {
	svc, repo, _, notify := newTestService(testEvent())

	require.NoError(t, svc.UpdateTitle(context.Background(), "ev-1", "Renamed", "alice"))
	assert.Equal(t, "Renamed", repo.events["ev-1"].Title)
	assert.NotEmpty(t, notify.notified)

	assert.ErrorIs(t, svc.UpdateTitle(context.Background(), "ev-1", "   ", "alice"), domain.ErrEmptyTitle)
	assert.ErrorIs(t, svc.UpdateTitle(context.Background(), "missing", "x", "alice"), domain.ErrEventNotFound)
}

func TestUpdateType(t *testing.T) {
	svc, repo, _, _ := newTestService(testEvent())

	require.NoError(t, svc.UpdateType(context.Background(), "ev-1", vocab.Phishing, "alice"))
	assert.Equal(t, vocab.Phishing, repo.events["ev-1"].EventType)

	assert.ErrorIs(t, svc.UpdateType(context.Background(), "ev-1", "Bogus", "alice"), domain.ErrInvalidEventType)
}

func TestUpdateStatus(t *testing.T) {
	svc, repo, _, _ := newTestService(testEvent())

	require.NoError(t, svc.UpdateStatus(context.Background(), "ev-1", domain.StatusAnalyzed, "alice"))
	assert.Equal(t, domain.StatusAnalyzed, repo.events["ev-1"].Status)

	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), "ev-1", "Done", "alice"), domain.ErrInvalidStatus)
}

func TestDeleteEvent(t *testing.T) {
	svc, repo, _, _ := newTestService(testEvent())

	assert.ErrorIs(t, svc.DeleteEvent(context.Background(), "ev-1", analyst()), domain.ErrForbidden)
	assert.Contains(t, repo.events, "ev-1")

	require.NoError(t, svc.DeleteEvent(context.Background(), "ev-1", adminUser()))
	assert.NotContains(t, repo.events, "ev-1")
}

func TestUploadSample(t *testing.T) {
	svc, _, samples, _ := newTestService(testEvent())

	_, err := svc.UploadSample(context.Background(), "ev-1", "a.bin", "OSINT", "alice", nil)
	assert.ErrorIs(t, err, domain.ErrEmptySample)

	_, err = svc.UploadSample(context.Background(), "ev-1", "a.bin", "", "alice", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrSourceRequired)

	sample, err := svc.UploadSample(context.Background(), "ev-1", "dropper.exe", "OSINT", "alice", []byte("MZ payload"))
	require.NoError(t, err)
	assert.Equal(t, "ev-1", sample.EventID)
	assert.Equal(t, int64(10), sample.Size)
	assert.Len(t, sample.MD5, 32)
	assert.NotEmpty(t, sample.StorageKey)

	stored, err := samples.GetData(context.Background(), sample.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("MZ payload"), stored)

	// same bytes again is a duplicate
	_, err = svc.UploadSample(context.Background(), "ev-1", "copy.exe", "OSINT", "alice", []byte("MZ payload"))
	assert.ErrorIs(t, err, domain.ErrDuplicateSample)
}

func TestWriteDownload(t *testing.T) {
	event := testEvent()
	event.Objects = []domain.EventObject{
		{ID: "obj-1", ObjectType: "Domain", Value: "evil.example.com"},
		{ID: "obj-2", ObjectType: "IPv4 Address", Value: "203.0.113.7"},
	}
	svc, _, _, _ := newTestService(event)

	sample, err := svc.UploadSample(context.Background(), "ev-1", "dropper.exe", "OSINT", "alice", []byte("MZ payload"))
	require.NoError(t, err)

	var buf bytes.Buffer
	filename, err := svc.WriteDownload(context.Background(), "ev-1", domain.DownloadRequest{
		ObjectIDs: []string{"obj-1"},
		SampleIDs: []string{sample.ID},
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "event-ev-1.zip", filename)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	names := []string{zr.File[0].Name, zr.File[1].Name}
	assert.Contains(t, names, "objects/obj-1.txt")
	assert.Contains(t, names, "samples/dropper.exe")

	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		if f.Name == "objects/obj-1.txt" {
			assert.Equal(t, "Domain: evil.example.com\n", string(content))
		} else {
			assert.Equal(t, "MZ payload", string(content))
		}
	}
}

func TestAddReleasability(t *testing.T) {
	svc, repo, _, _ := newTestService(testEvent())

	require.NoError(t, svc.AddReleasability(context.Background(), "ev-1", "FVEY", "alice"))
	assert.ErrorIs(t, svc.AddReleasability(context.Background(), "ev-1", "FVEY", "alice"), domain.ErrReleasabilityExists)
	require.Len(t, repo.events["ev-1"].Releasability, 1)

	require.NoError(t, svc.RemoveReleasability(context.Background(), "ev-1", "FVEY"))
	assert.ErrorIs(t, svc.RemoveReleasability(context.Background(), "ev-1", "FVEY"), domain.ErrReleasabilityNotFound)
}

func TestSetSectors(t *testing.T) {
	svc, repo, _, _ := newTestService(testEvent())

	require.NoError(t, svc.SetSectors(context.Background(), "ev-1", []string{"Energy", "Government"}))
	assert.Equal(t, []string{"Energy", "Government"}, repo.events["ev-1"].Sectors)

	assert.Error(t, svc.SetSectors(context.Background(), "ev-1", []string{"Memes"}))
}

func TestToggleSubscription(t *testing.T) {
	svc, _, _, _ := newTestService(testEvent())

	subscribed, err := svc.ToggleSubscription(context.Background(), "ev-1", "alice")
	require.NoError(t, err)
	assert.True(t, subscribed)

	subscribed, err = svc.ToggleSubscription(context.Background(), "ev-1", "alice")
	require.NoError(t, err)
	assert.False(t, subscribed)

	_, err = svc.ToggleSubscription(context.Background(), "missing", "alice")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestSplitTerms(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitTerms(" a , b ,"))
	assert.Nil(t, splitTerms("  ,  "))
	assert.Nil(t, splitTerms(""))
}
