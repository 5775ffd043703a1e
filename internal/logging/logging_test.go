package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{" Error ", zerolog.ErrorLevel, false},
		{"verbose", zerolog.NoLevel, true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "parseLevel(%q)", tt.input)
			continue
		}
		require.NoError(t, err, "parseLevel(%q)", tt.input)
		assert.Equal(t, tt.want, got, "parseLevel(%q)", tt.input)
	}
}

func TestSetup_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "caretaker.log")

	cleanup, err := Setup(Config{Level: "debug", File: path})
	require.NoError(t, err)
	defer cleanup()

	assert.FileExists(t, path)
}

func TestSetup_BadLevel(t *testing.T) {
	_, err := Setup(Config{Level: "shouty"})
	assert.Error(t, err)
}

func TestSetup_NoFile(t *testing.T) {
	cleanup, err := Setup(DefaultConfig())
	require.NoError(t, err)
	cleanup()

	_, err = os.Stat("caretaker.log")
	assert.True(t, os.IsNotExist(err), "no log file should appear without one configured")
}

func TestDetachContext_SurvivesParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	detached := DetachContext(parent)
	cancel()

	select {
	case <-detached.Done():
		t.Fatal("detached context was cancelled with its parent")
	default:
	}
}

func TestDetachContextWithTimeout(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	detached, detachedCancel := DetachContextWithTimeout(parent, 50*time.Millisecond)
	defer detachedCancel()

	cancel()
	select {
	case <-detached.Done():
		t.Fatal("detached context was cancelled with its parent")
	default:
	}

	select {
	case <-detached.Done():
		assert.ErrorIs(t, detached.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("detached context never hit its own deadline")
	}
}
