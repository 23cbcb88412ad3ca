package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogDurationOf(t *testing.T) {
	catalog := NewCatalog("", 60, nil)

	assert.Equal(t, 60, catalog.DurationOf("Facial"))
	assert.Equal(t, 90, catalog.DurationOf("deep tissue"))
	assert.Equal(t, 30, catalog.DurationOf("  Consultation "))
	assert.Equal(t, 60, catalog.DurationOf("something unheard of"))
}

func TestCatalogTotalDuration(t *testing.T) {
	catalog := NewCatalog("", 60, nil)

	assert.Equal(t, 150, catalog.TotalDuration([]string{"facial", "deep tissue"}))
	assert.Equal(t, 0, catalog.TotalDuration(nil))
	// Duplicate services count twice.
	assert.Equal(t, 120, catalog.TotalDuration([]string{"facial", "facial"}))
}

func TestCatalogJSONOverrides(t *testing.T) {
	catalog := NewCatalog(`{"Facial": 45, "glow wrap": 40, "bogus": 0}`, 60, nil)

	assert.Equal(t, 45, catalog.DurationOf("facial"))
	assert.Equal(t, 40, catalog.DurationOf("Glow Wrap"))
	// Non-positive override ignored, unknown name falls back.
	assert.Equal(t, 60, catalog.DurationOf("bogus"))
}

func TestCatalogMalformedJSONFallsBack(t *testing.T) {
	catalog := NewCatalog(`{not json`, 45, nil)

	assert.Equal(t, 60, catalog.DurationOf("facial"))
	assert.Equal(t, 45, catalog.DurationOf("unknown"))
}
