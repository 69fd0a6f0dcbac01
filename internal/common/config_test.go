package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "prebuilt-receipt", cfg.Vision.Model)
	assert.Equal(t, 30*time.Second, cfg.Vision.MinInterval)
	assert.Equal(t, 60*time.Second, cfg.Vision.PollTimeout)
	assert.Equal(t, 3, cfg.Vision.MaxRetries)
	assert.Equal(t, 3, cfg.Processing.MaxThreads)
	assert.Equal(t, "./output", cfg.Output.Dir)
	assert.Equal(t, filepath.Join("output", "receipt_retry_queue.json"), cfg.Output.RetryQueuePath())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MAX_THREADS", "8")
	t.Setenv("POLLING_INTERVAL", "1.5")
	t.Setenv("OUTPUT_DIR", "/tmp/receipts")
	t.Setenv("VISION_ENDPOINT", "https://example.cognitiveservices.azure.com/")
	t.Setenv("VISION_API_KEY", "secret")

	cfg, err := LoadConfig("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Processing.MaxThreads)
	assert.Equal(t, 1500*time.Millisecond, cfg.Vision.PollInterval)
	assert.Equal(t, "/tmp/receipts", cfg.Output.Dir)
	assert.Equal(t, "https://example.cognitiveservices.azure.com", cfg.Vision.Endpoint)
	assert.NoError(t, cfg.ValidateVision())
}

func TestLoadConfigFileMerges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing:\n  max_threads: 5\nlog:\n  format: json\n"), 0o644))

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Processing.MaxThreads)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Vision.MaxRetries)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, "CONFIG_ERROR", CodeOf(err))
}

func TestValidateVisionRequiresCredentials(t *testing.T) {
	t.Setenv("VISION_ENDPOINT", "")
	t.Setenv("VISION_API_KEY", "")
	cfg, err := LoadConfig("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	err = cfg.ValidateVision()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := LoadConfig("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	cfg.Processing.MaxThreads = 0
	cfg.Log.Level = "loud"
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "MaxThreads")
	assert.Contains(t, err.Error(), "Level")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("Warning").String())
	assert.Equal(t, "INFO", ParseLevel("bogus").String())
}
