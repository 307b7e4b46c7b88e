package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"sqlscope-backend/internal/config"
)

func TestNewLevels(t *testing.T) {
	log := New(config.LogConfig{Level: "warn", JSON: true})
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))

	log = New(config.LogConfig{Level: "bogus"})
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
}
