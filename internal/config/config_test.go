package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, "/", cfg.App.LandingPath)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, SequenceBackendPostgres, cfg.Sequence.Backend)
	assert.Equal(t, "ticketId", cfg.Sequence.CounterName)
	assert.Equal(t, 4*time.Second, cfg.Classifier.Timeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Classifier.RetryBackoff())
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.Auth.RoleCacheTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SEQUENCE_BACKEND", "redis")
	t.Setenv("CLASSIFIER_TIMEOUT_MS", "1500")
	t.Setenv("MISTRAL_API_KEY", "mk-123")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, SequenceBackendRedis, cfg.Sequence.Backend)
	assert.Equal(t, 1500*time.Millisecond, cfg.Classifier.Timeout())
	assert.Equal(t, "mk-123", cfg.Classifier.APIKey)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":      {"STORAGE_DRIVER": "dynamo"},
		"unknown backend":     {"SEQUENCE_BACKEND": "zookeeper"},
		"postgres seq w/o pg": {"STORAGE_DRIVER": "memory"},
		"max below default":   {"PAGINATION_MAX_LIMIT": "5"},
		"non numeric rate":    {"CLASSIFIER_RATE_PER_SECOND": "fast"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
