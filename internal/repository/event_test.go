package repository

import (
	"testing"

	"event-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestBuildEventUpdateEmpty(t *testing.T) {
	setParts, args := buildEventUpdate(&domain.UpdateEventFields{})
	assert.Empty(t, setParts)
	assert.Empty(t, args)
}

func TestBuildEventUpdateSingleField(t *testing.T) {
	setParts, args := buildEventUpdate(&domain.UpdateEventFields{
		Status: strptr("Analyzed"),
	})

	assert.Equal(t, []string{"status = $1"}, setParts)
	assert.Equal(t, []interface{}{"Analyzed"}, args)
}

func TestBuildEventUpdateNumbering(t *testing.T) {
	setParts, args := buildEventUpdate(&domain.UpdateEventFields{
		Title:       strptr("new title"),
		EventType:   strptr("Phishing"),
		Status:      strptr("In Progress"),
		Description: strptr("desc"),
	})

	assert.Equal(t, []string{
		"title = $1",
		"event_type = $2",
		"status = $3",
		"description = $4",
	}, setParts)
	assert.Equal(t, []interface{}{"new title", "Phishing", "In Progress", "desc"}, args)
}
