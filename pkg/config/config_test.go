package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "geostream-archiver", cfg.App.Name)
	assert.Equal(t, "staged_events", cfg.Archive.StagingDir)
	assert.Equal(t, "earthlab-geolocated-tweets", cfg.Archive.Container)
	assert.Equal(t, 5*time.Second, cfg.Archive.InterEventDelay)
	assert.Equal(t, 30*time.Second, cfg.Archive.UploadTimeout)
	assert.True(t, cfg.Archive.SweepOnStart)

	// Contiguous continental US.
	assert.Equal(t, []float64{-125.0, 24.94, -66.93, 49.59}, cfg.Feed.BoundingBox)
	assert.Equal(t, time.Second, cfg.Feed.ReconnectBackoff)
	assert.Equal(t, 2*time.Minute, cfg.Feed.ReconnectMax)
	assert.Zero(t, cfg.Feed.ReconnectAttempts)

	assert.Empty(t, cfg.Kafka.Brokers, "notifications default to disabled")
}

func TestLoad_KeyPrefixDefaultsToStagingDir(t *testing.T) {
	t.Setenv("ARCHIVE_STAGING_DIR", "/var/spool/geostream")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/spool/geostream", cfg.Archive.KeyPrefix)

	t.Setenv("ARCHIVE_KEY_PREFIX", "events/geolocated")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "events/geolocated", cfg.Archive.KeyPrefix)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ARCHIVE_INTER_EVENT_DELAY", "0s")
	t.Setenv("FEED_BOUNDING_BOX", "-105.1,39.6,-104.6,39.9")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Archive.InterEventDelay)
	assert.Equal(t, []float64{-105.1, 39.6, -104.6, 39.9}, cfg.Feed.BoundingBox)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("bounding box must have four coordinates", func(t *testing.T) {
		t.Setenv("FEED_BOUNDING_BOX", "-105.1,39.6,-104.6")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bounding box must not be degenerate", func(t *testing.T) {
		t.Setenv("FEED_BOUNDING_BOX", "-104.6,39.6,-105.1,39.9")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative delay is rejected", func(t *testing.T) {
		t.Setenv("ARCHIVE_INTER_EVENT_DELAY", "-5s")
		_, err := Load()
		assert.Error(t, err)
	})
}
