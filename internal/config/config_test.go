package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, Validate(cfg))
	assert.Equal(t, matcher.DefaultWeights(), cfg.Matching.Weights)
	assert.Equal(t, 100.0, cfg.Matching.AutoMatch.RadiusKm)
	assert.Equal(t, 20, cfg.Matching.AutoMatch.MaxResults)
	assert.Equal(t, 50.0, cfg.Matching.Discovery.RadiusKm)
	assert.Equal(t, 0, cfg.Matching.Discovery.MaxResults)
	assert.Equal(t, 100, cfg.Matching.PoolLimit)
	assert.Equal(t, 1000, cfg.Matching.DiscoveryPoolLimit)
}

func TestLoadFromPath_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "bloodmatch_config.test.yaml", `
databaseURL: postgres://bloodmatch@localhost:5432/bloodmatch
matching:
  autoMatch:
    radiusKm: 30
    maxResults: 10
  weights:
    baseScore: 100
    distanceBands:
      - beyondKm: 25
        penalty: 20
    unavailablePenalty: 40
    ineligibleWindowDays: 56
    ineligiblePenalty: 50
    recentWindowDays: 90
    recentPenalty: 5
    exactTypeBonus: 0
advisor:
  enabled: true
  baseURL: https://llm.internal/v1
  model: triage-small
  timeout: 4s
notifications:
  natsURL: nats://localhost:4222
metricsTextfile: /var/lib/node_exporter/bloodmatch.prom
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://bloodmatch@localhost:5432/bloodmatch", cfg.DatabaseURL)
	assert.Equal(t, matcher.RankOptions{RadiusKm: 30, MaxResults: 10}, cfg.Matching.AutoMatch)
	assert.Equal(t, matcher.DiscoveryOptions, cfg.Matching.Discovery)
	assert.Equal(t, []matcher.DistanceBand{{BeyondKm: 25, Penalty: 20}}, cfg.Matching.Weights.DistanceBands)
	assert.Equal(t, 90, cfg.Matching.Weights.RecentWindowDays)
	assert.Equal(t, 4*time.Second, cfg.Advisor.Timeout)
	assert.Equal(t, 5, cfg.Advisor.TopCandidates)
	assert.Equal(t, "nats://localhost:4222", cfg.Notifications.NATSURL)
	assert.Equal(t, "bloodmatch.notifications", cfg.Notifications.SubjectPrefix)
	assert.Equal(t, "/var/lib/node_exporter/bloodmatch.prom", cfg.MetricsTextfile)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"zero radius", func(cfg *Config) { cfg.Matching.AutoMatch.RadiusKm = 0 }},
		{"negative max results", func(cfg *Config) { cfg.Matching.Discovery.MaxResults = -1 }},
		{"zero pool limit", func(cfg *Config) { cfg.Matching.PoolLimit = 0 }},
		{"zero discovery pool limit", func(cfg *Config) { cfg.Matching.DiscoveryPoolLimit = 0 }},
		{"recent window shorter than ineligible window", func(cfg *Config) { cfg.Matching.Weights.RecentWindowDays = 30 }},
		{"negative band penalty", func(cfg *Config) { cfg.Matching.Weights.DistanceBands[0].Penalty = -5 }},
		{"advisor enabled without url", func(cfg *Config) { cfg.Advisor.Enabled = true; cfg.Advisor.Model = "m" }},
		{"email enabled without gmail user", func(cfg *Config) { cfg.Notifications.EmailEnabled = true }},
		{"bad nats url", func(cfg *Config) { cfg.Notifications.NATSURL = "not a url" }},
		{"no workers", func(cfg *Config) { cfg.Notifications.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	_, err := LoadFromPath(writeFile(t, "bad.yaml", "matching: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadWithEnv_FindsFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile("bloodmatch_config.ci.yaml", []byte("databaseURL: postgres://ci\n"), 0644))

	cfg, err := LoadWithEnv("ci")
	require.NoError(t, err)
	assert.Equal(t, "postgres://ci", cfg.DatabaseURL)
}

func TestLoadWithEnv_Missing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := LoadWithEnv("nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find config file")
}
