package render

import (
	"bytes"
	"testing"
	"time"

	"event-service/internal/domain"
	"event-service/internal/vocab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detailData(admin bool) *domain.EventDetail {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	event := &domain.Event{
		ID:          "ev-1",
		Title:       "Watering hole campaign",
		EventType:   vocab.StrategicWebCompromise,
		Description: "Compromised industry news site",
		Status:      domain.StatusInProgress,
		Sectors:     []string{"Energy", "Government"},
		BucketList:  []string{"apt", "finance"},
		Created:     created,
		Modified:    created,
	}
	return &domain.EventDetail{
		Event: event,
		Subscription: domain.Subscription{
			Type:       domain.TypeEvent,
			ID:         "ev-1",
			Subscribed: true,
		},
		Favorite: true,
		Admin:    admin,
		Analyst:  "alice",
		DownloadForm: domain.DownloadForm{
			Action: "/api/events/ev-1/download",
		},
	}
}

func renderDetail(t *testing.T, data *domain.EventDetail) string {
	t.Helper()
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "detail.html", data, nil))
	return buf.String()
}

func TestDetailPageFields(t *testing.T) {
	html := renderDetail(t, detailData(false))

	assert.Contains(t, html, `<h1 id="event-title"`)
	assert.Contains(t, html, "Watering hole campaign")
	assert.Contains(t, html, `<td id="event-id">ev-1</td>`)
	assert.Contains(t, html, vocab.StrategicWebCompromise)
	assert.Contains(t, html, `<td id="event-created">2025-03-14 09:26:53</td>`)
	assert.Contains(t, html, "Compromised industry news site")
	assert.Contains(t, html, `<span id="event-status" class="status-value">In Progress</span>`)
	assert.Contains(t, html, "Energy, Government")
	assert.Contains(t, html, "apt, finance")
}

func TestDetailPageScriptURLs(t *testing.T) {
	html := renderDetail(t, detailData(false))

	assert.Contains(t, html, `var update_status_url = "/api/events/ev-1/status";`)
	assert.Contains(t, html, `var download_object_url = "/api/events/ev-1/download";`)
	assert.Contains(t, html, `var event_type_options_url = "/api/events/types";`)
	assert.Contains(t, html, `<script src="/static/js/event_detail.js">`)
}

func TestDetailPageAdminControls(t *testing.T) {
	asAdmin := renderDetail(t, detailData(true))
	assert.Contains(t, asAdmin, `id="delete-event-btn"`)

	asAnalyst := renderDetail(t, detailData(false))
	assert.NotContains(t, asAnalyst, `id="delete-event-btn"`)
}

func TestDetailPageSubscriptionState(t *testing.T) {
	data := detailData(false)
	html := renderDetail(t, data)
	assert.Contains(t, html, "Unsubscribe")
	assert.Contains(t, html, `class="favorite on"`)

	data.Subscription.Subscribed = false
	data.Favorite = false
	html = renderDetail(t, data)
	assert.Contains(t, html, ">Subscribe<")
	assert.NotContains(t, html, `class="favorite on"`)
}

func TestDetailPageEscapesEventContent(t *testing.T) {
	data := detailData(false)
	data.Event.Title = `<script>alert(1)</script>`
	html := renderDetail(t, data)

	assert.NotContains(t, html, `<script>alert(1)</script>`)
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestErrorPageHasNoWidgets(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "error.html", map[string]string{
		"Error": "event not yet available or you do not have access to view it.",
	}, nil))

	html := buf.String()
	assert.Contains(t, html, "event not yet available or you do not have access to view it.")
	assert.NotContains(t, html, "widget")
	assert.NotContains(t, html, "event-title")
	assert.NotContains(t, html, "update_status_url")
}

func TestJoinComma(t *testing.T) {
	assert.Equal(t, "", joinComma(nil))
	assert.Equal(t, "a", joinComma([]string{"a"}))
	assert.Equal(t, "a, b, c", joinComma([]string{"a", "b", "c"}))
}
