package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		t.Run(level, func(t *testing.T) {
			logger := New(level)
			assert.NotNil(t, logger)
			assert.NotNil(t, logger.Logger)
		})
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	assert.NotNil(t, logger)
}

func TestWithComponent(t *testing.T) {
	logger := Default().WithComponent("scheduler")
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
}
