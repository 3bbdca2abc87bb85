package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	zc, logs := observer.New(level)
	prev := SetLogger(NewZapLogger(zap.New(zc)))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

// TestLogger_BackendFailureIsLoggedAtWarn verifies masked failures stay visible
// Given: A backend that fails every call
// When: ActiveSpan is queried
// Then: One warn entry names the operation and carries the error
func TestLogger_BackendFailureIsLoggedAtWarn(t *testing.T) {
	// Arrange
	isolate(t)
	logs := observedLogger(t, zapcore.DebugLevel)
	SetBackend(failingBackend{err: errors.New("slot store offline")})

	// Act
	span := ActiveSpan()

	// Assert
	assert.Equal(t, NoopSpan, span)
	entries := logs.FilterMessage("active span operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, OpActive, fields["op"])
	assert.Equal(t, "slot store offline", fields["error"])
}

func TestLogger_PanicFailureIsLogged(t *testing.T) {
	isolate(t)
	logs := observedLogger(t, zapcore.WarnLevel)
	SetBackend(failingBackend{})

	assert.False(t, ClearAll())

	entries := logs.FilterField(zap.String("op", OpClearAll)).All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "backend exploded")
}

func TestNewDefaultLogger_Levels(t *testing.T) {
	tests := []struct {
		level    string
		enabled  zapcore.Level
		disabled zapcore.Level
	}{
		{level: "debug", enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{level: "info", enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{level: "", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		{level: "loud", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		{level: "error", enabled: zapcore.ErrorLevel, disabled: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			l := NewDefaultLogger(tt.level)
			assert.True(t, l.l.Core().Enabled(tt.enabled))
			assert.False(t, l.l.Core().Enabled(tt.disabled))
		})
	}
}

func TestNewZapLogger_NilIsSilent(t *testing.T) {
	l := NewZapLogger(nil)
	assert.NotPanics(t, func() {
		l.Warn("dropped", F("key", 1))
		_ = l.Sync()
	})
}

func TestSetLogger_ReturnsPrevious(t *testing.T) {
	first := NewZapLogger(zap.NewNop())
	original := SetLogger(first)
	t.Cleanup(func() { SetLogger(original) })

	second := NewZapLogger(zap.NewNop())
	assert.Same(t, first, SetLogger(second))
	assert.Same(t, second, GetLogger())
}
