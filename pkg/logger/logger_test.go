package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevel(t *testing.T) {
	New(Config{Level: "debug"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	New(Config{Level: " WARN "})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	New(Config{Level: "verbose"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	New(Config{Level: ""})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
