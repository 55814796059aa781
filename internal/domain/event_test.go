package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	for _, s := range ValidStatuses() {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("Closed"))
	assert.False(t, ValidStatus(""))
}

func TestHasSource(t *testing.T) {
	event := &Event{
		Sources: []Source{
			{Name: "OSINT"},
			{Name: "Partner Feed"},
		},
	}

	assert.True(t, event.HasSource([]string{"Partner Feed"}))
	assert.True(t, event.HasSource([]string{"Other", "OSINT"}))
	assert.False(t, event.HasSource([]string{"Other"}))
	assert.False(t, event.HasSource(nil))
}
