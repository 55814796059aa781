package vocab

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEventType(t *testing.T) {
	assert.True(t, ValidEventType(Phishing))
	assert.True(t, ValidEventType(StrategicWebCompromise))
	assert.False(t, ValidEventType("Carrier Pigeon"))
	assert.False(t, ValidEventType(""))
}

func TestEventTypesSorted(t *testing.T) {
	types := EventTypes()
	require.NotEmpty(t, types)
	assert.True(t, sort.StringsAreSorted(types))
	assert.Contains(t, types, Unknown)
}

func TestEventTypesReturnsCopy(t *testing.T) {
	types := EventTypes()
	types[0] = "mutated"
	assert.NotContains(t, EventTypes(), "mutated")
}

func TestValidSector(t *testing.T) {
	assert.True(t, ValidSector("Energy"))
	assert.False(t, ValidSector("Memes"))
}

func TestValidConfidence(t *testing.T) {
	assert.True(t, ValidConfidence("high"))
	assert.False(t, ValidConfidence("certain"))
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := []byte("event_types:\n  - Supply Chain Compromise\n  - Phishing\nsectors:\n  - Space\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	require.NoError(t, LoadOverrides(path))

	assert.True(t, ValidEventType("Supply Chain Compromise"))
	assert.True(t, ValidSector("Space"))

	// duplicates are not appended twice
	count := 0
	for _, v := range EventTypes() {
		if v == Phishing {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestLoadOverridesMissingFile(t *testing.T) {
	err := LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
