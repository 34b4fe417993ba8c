package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
)

// MatchingConfig controls how donors are ranked
type MatchingConfig struct {
	// Discovery bounds ad-hoc nearby donor searches
	Discovery matcher.RankOptions `yaml:"discovery"`

	// AutoMatch bounds the candidate list stored on a new request
	AutoMatch matcher.RankOptions `yaml:"autoMatch"`

	// PoolLimit caps how many donors are fetched for one matching run
	PoolLimit int `yaml:"poolLimit" validate:"gt=0"`
	// DiscoveryPoolLimit caps how many donors a nearby search considers
	DiscoveryPoolLimit int `yaml:"discoveryPoolLimit" validate:"gt=0"`

	Weights matcher.Weights `yaml:"weights"`
}

// AdvisorConfig configures the optional advisory note service
type AdvisorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"baseURL" validate:"omitempty,url"`
	Model     string `yaml:"model" validate:"required_if=Enabled true"`
	APIKeyEnv string `yaml:"apiKeyEnv"`

	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	TopCandidates int           `yaml:"topCandidates" validate:"gt=0"`

	// Circuit breaker: trips after FailureThreshold consecutive failures
	// and stays open for OpenTimeout
	FailureThreshold uint32        `yaml:"failureThreshold" validate:"gt=0"`
	OpenTimeout      time.Duration `yaml:"openTimeout" validate:"gt=0"`
}

// NotificationsConfig configures notification delivery
type NotificationsConfig struct {
	EmailEnabled bool          `yaml:"emailEnabled"`
	GmailUserID  string        `yaml:"gmailUserID" validate:"required_if=EmailEnabled true"`
	GmailSender  string        `yaml:"gmailSender,omitempty"`
	SendInterval time.Duration `yaml:"sendInterval" validate:"gte=0"`

	// NATSURL enables live push when set
	NATSURL       string `yaml:"natsURL,omitempty" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subjectPrefix" validate:"required"`

	QueueSize int `yaml:"queueSize" validate:"gt=0"`
	Workers   int `yaml:"workers" validate:"gt=0"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL     string              `yaml:"databaseURL"`
	Matching        MatchingConfig      `yaml:"matching"`
	Advisor         AdvisorConfig       `yaml:"advisor"`
	Notifications   NotificationsConfig `yaml:"notifications"`
	MetricsTextfile string              `yaml:"metricsTextfile,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns a configuration with every optional field populated
func Default() *Config {
	return &Config{
		Matching: MatchingConfig{
			Discovery: matcher.DiscoveryOptions,
			AutoMatch: matcher.AutoMatchOptions,
			PoolLimit: 100,
			Weights:   matcher.DefaultWeights(),

			DiscoveryPoolLimit: 1000,
		},
		Advisor: AdvisorConfig{
			APIKeyEnv:        "BLOODMATCH_ADVISOR_API_KEY",
			Timeout:          10 * time.Second,
			TopCandidates:    5,
			FailureThreshold: 3,
			OpenTimeout:      30 * time.Second,
		},
		Notifications: NotificationsConfig{
			SendInterval:  3 * time.Second,
			SubjectPrefix: "bloodmatch.notifications",
			QueueSize:     256,
			Workers:       2,
		},
	}
}

// LoadWithEnv loads and validates bloodmatch_config.<env>.yaml.
// It looks in the current directory first, then in the user's home directory.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findFile(fmt.Sprintf("bloodmatch_config.%s.yaml", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// Values in the file override the defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Advisor.Enabled && cfg.Advisor.BaseURL == "" {
		return fmt.Errorf("config validation failed: advisor.baseURL is required when the advisor is enabled")
	}
	return nil
}

// findFile searches for name in the current directory and the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
