package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9300, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Health.DegradedThreshold)
	assert.Equal(t, 5, cfg.Health.FailingThreshold)
	assert.Equal(t, 10, cfg.Digest.MaxArticlesPerFeed)
	assert.Equal(t, 200, cfg.Digest.ExcerptRunes)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8088")
	t.Setenv("FETCH_MAX_CONCURRENCY", "16")
	t.Setenv("HEALTH_FAILING_THRESHOLD", "7")
	t.Setenv("PROVIDER_RATE_LIMIT_RPS", "0.5")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 16, cfg.Fetch.MaxConcurrency)
	assert.Equal(t, 7, cfg.Health.FailingThreshold)
	assert.Equal(t, 0.5, cfg.Provider.RateLimitRPS)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := map[string]struct {
		env   map[string]string
		wants string
	}{
		"should reject malformed duration": {
			env:   map[string]string{"FETCH_TIMEOUT": "not-a-duration"},
			wants: "failed to load from environment",
		},
		"should reject out of range port": {
			env:   map[string]string{"SERVER_PORT": "70000"},
			wants: "config validation failed",
		},
		"should reject failing threshold below degraded": {
			env: map[string]string{
				"HEALTH_DEGRADED_THRESHOLD": "5",
				"HEALTH_FAILING_THRESHOLD":  "3",
			},
			wants: "config validation failed",
		},
		"should reject unknown cache backend": {
			env:   map[string]string{"CACHE_BACKEND": "memcached"},
			wants: "config validation failed",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wants)
		})
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "app",
		Password: "secret",
		Name:     "digest",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=app password=secret dbname=digest sslmode=require",
		d.DSN())
}
