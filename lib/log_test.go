package lib

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultLogger(t *testing.T) {
	got := NewDefaultLogger()
	require.Equal(t, DebugLevel, got.config.Level)
	require.Equal(t, os.Stdout, got.config.Out)
}

func TestNewNullLogger(t *testing.T) {
	got := NewNullLogger()
	require.Equal(t, io.Discard, got.config.Out)
}

func TestLoggerLevels(t *testing.T) {
	buf := new(bytes.Buffer)
	log := NewLogger(LoggerConfig{Level: WarnLevel, Out: buf})
	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("shown warn")
	log.Errorf("shown %s", "error")
	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown warn")
	require.Contains(t, out, "shown error")
}

func TestLoggerPrefix(t *testing.T) {
	buf := new(bytes.Buffer)
	log := NewLogger(LoggerConfig{Level: DebugLevel, Out: buf}).WithPrefix("del1")
	log.Info("hello")
	require.Contains(t, buf.String(), "[del1]")
	require.Contains(t, buf.String(), "hello")
}

func TestLoggerToFile(t *testing.T) {
	dir := t.TempDir()
	log := NewLogger(LoggerConfig{Level: InfoLevel, MaxSizeMB: 1}, dir)
	log.Info("persisted")
	bz, err := os.ReadFile(filepath.Join(dir, LogDirectory, LogFileName))
	require.NoError(t, err)
	require.Contains(t, string(bz), "persisted")
}
