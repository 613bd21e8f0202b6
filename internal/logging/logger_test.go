package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })
	return logs
}

func TestGet_AttachesCategory(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Get(CategoryRegistry).Info("added %s", "foundation/logic/a")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "added foundation/logic/a", entries[0].Message)
	assert.Equal(t, "registry", entries[0].ContextMap()["category"])
}

func TestGet_RespectsLevel(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	l := Get(CategoryRender)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	assert.Equal(t, 2, logs.Len())
}

func TestCategoryFilter(t *testing.T) {
	require.NoError(t, Init(Options{Level: "debug", Categories: map[string]bool{"store": false}}))
	t.Cleanup(func() { SetLogger(nil) })

	assert.False(t, IsCategoryEnabled(CategoryStore))
	assert.True(t, IsCategoryEnabled(CategoryRegistry), "unlisted categories stay enabled")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "WARN", want: zapcore.WarnLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "chatty", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInit_RejectsBadLevel(t *testing.T) {
	assert.Error(t, Init(Options{Level: "loud"}))
}

func TestTimer_StopWithThreshold(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	timer := StartTimer(CategoryReport, "Generate")
	time.Sleep(2 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Nanosecond)

	assert.Greater(t, elapsed, time.Duration(0))
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestNoopBeforeInit(t *testing.T) {
	SetLogger(nil)
	assert.NotPanics(t, func() {
		Get(CategoryCLI).With("k", "v").Error("nothing is written %d", 1)
	})
}
