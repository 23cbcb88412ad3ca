package sms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMSISDN(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"local form", "0911234567", "251911234567", true},
		{"international digits", "251911234567", "251911234567", true},
		{"plus prefix", "+251911234567", "251911234567", true},
		{"double zero prefix", "00251911234567", "251911234567", true},
		{"bare subscriber", "911234567", "251911234567", true},
		{"spaces and dashes", " 09 11-23-45-67 ", "251911234567", true},
		{"empty", "", "", false},
		{"letters only", "call me", "", false},
		{"too short", "0911", "", false},
		{"too long", "0911234567890123", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeMSISDN(tt.input, "251")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeMSISDNNoCountryCode(t *testing.T) {
	_, ok := NormalizeMSISDN("0911234567", "")
	assert.False(t, ok)
}
