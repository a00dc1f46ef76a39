package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "shared-secret"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STREETPASS_TOKEN_SECRET", testSecret)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, "records", cfg.RecordsDir)
	assert.Equal(t, ".json", cfg.RecordsExt)
	assert.Equal(t, ForwarderDocument, cfg.Forwarder)
	assert.Equal(t, "dedup", cfg.MergePolicy)
	assert.Equal(t, 600*time.Second, cfg.ContactWindow)
	assert.Equal(t, 15*time.Minute, cfg.ExposureMin)
	assert.False(t, cfg.EnforceValidTo)
	assert.Equal(t, []byte(testSecret), cfg.TokenSecret)
	assert.Empty(t, cfg.TempIDKeys)
}

func TestLoadRequiresTokenSecret(t *testing.T) {
	t.Setenv("STREETPASS_TOKEN_SECRET", "")

	_, err := Load()
	require.ErrorContains(t, err, "STREETPASS_TOKEN_SECRET is required")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STREETPASS_TOKEN_SECRET", testSecret)
	t.Setenv("STREETPASS_RECORDS_DIR", "/uploads/")
	t.Setenv("STREETPASS_TEMPID_KEYS", " a , b,,")
	t.Setenv("STREETPASS_ENFORCE_VALID_TO", "true")
	t.Setenv("STREETPASS_PIPELINE_TIMEOUT", "30s")
	t.Setenv("STREETPASS_FORWARDER", "KAFKA")
	t.Setenv("STREETPASS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STREETPASS_WORKERS", "-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "uploads", cfg.RecordsDir)
	assert.Equal(t, []string{"a", "b"}, cfg.TempIDKeys)
	assert.True(t, cfg.EnforceValidTo)
	assert.Equal(t, 30*time.Second, cfg.PipelineTimeout)
	assert.Equal(t, ForwarderKafka, cfg.Forwarder)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, defaultWorkerCount, cfg.Workers)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("STREETPASS_TOKEN_SECRET", testSecret)
	t.Setenv("STREETPASS_PIPELINE_TIMEOUT", "soon")
	t.Setenv("STREETPASS_REDIS_DB", "zero")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "STREETPASS_PIPELINE_TIMEOUT")
	assert.ErrorContains(t, err, "STREETPASS_REDIS_DB")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"kafka without brokers", func(c *Config) { c.Forwarder = ForwarderKafka }, "KAFKA_BROKERS"},
		{"unknown forwarder", func(c *Config) { c.Forwarder = "s3" }, "unknown forwarder"},
		{"extension without dot", func(c *Config) { c.RecordsExt = "json" }, "must start with a dot"},
		{"same buckets", func(c *Config) { c.ArchiveBucket = c.UploadBucket }, "must differ"},
		{"missing token secret", func(c *Config) { c.TokenSecret = nil }, "STREETPASS_TOKEN_SECRET"},
		{"sub-second contact window", func(c *Config) { c.ContactWindow = 500 * time.Millisecond }, "shorter than one second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STREETPASS_TOKEN_SECRET", testSecret)
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
