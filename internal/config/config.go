package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for a promotion or validation run
type Config struct {
	// Registry connection
	Protocol        string        `json:"protocol" yaml:"protocol"` // "https" or "http"
	RegistryUser    string        `json:"registry_user" yaml:"registry_user"`
	PasswordEnv     string        `json:"password_env" yaml:"password_env"` // name of the env var holding the password
	RegistryTimeout time.Duration `json:"registry_timeout" yaml:"registry_timeout"`
	RetryAttempts   int           `json:"retry_attempts" yaml:"retry_attempts"`
	RetryBackoff    time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	UserAgent       string        `json:"user_agent" yaml:"user_agent"`

	// Promotion
	TagPrefix string `json:"tag_prefix" yaml:"tag_prefix"`
	DryRun    bool   `json:"dry_run" yaml:"dry_run"`
	// MaxConcurrentWrites limits how many alias tags are written in parallel.
	MaxConcurrentWrites int `json:"max_concurrent_writes" yaml:"max_concurrent_writes"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFile   string `json:"log_file" yaml:"log_file"`
	LogFormat string `json:"log_format" yaml:"log_format"` // "json" or "console"

	// Notification configuration
	NotificationLevel string `json:"notification_level" yaml:"notification_level"` // "all", "failure", "none"
	SlackWebhook      string `json:"slack_webhook" yaml:"slack_webhook"`
	DiscordWebhook    string `json:"discord_webhook" yaml:"discord_webhook"`
	TeamsWebhook      string `json:"teams_webhook" yaml:"teams_webhook"`
	GenericWebhookURL string `json:"generic_webhook_url" yaml:"generic_webhook_url"`

	// Metrics push
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	PushgatewayJob string `json:"pushgateway_job" yaml:"pushgateway_job"`
	InfluxURL      string `json:"influx_url" yaml:"influx_url"`
	InfluxToken    string `json:"influx_token" yaml:"influx_token"`
	InfluxOrg      string `json:"influx_org" yaml:"influx_org"`
	InfluxBucket   string `json:"influx_bucket" yaml:"influx_bucket"`
}

// DefaultConfig returns a sane default configuration
func DefaultConfig() *Config {
	return &Config{
		Protocol:        "https",
		RegistryTimeout: 30 * time.Second,
		RetryAttempts:   3,
		RetryBackoff:    500 * time.Millisecond,
		UserAgent:       "oci-semver-tagging",

		// at most four aliases exist per run
		MaxConcurrentWrites: 4,

		LogLevel:  "info",
		LogFormat: "console",

		NotificationLevel: "all",
		PushgatewayJob:    "oci_semver_tagging",
	}
}

// Insecure reports whether the registry should be reached over plain HTTP.
func (c *Config) Insecure() bool {
	return strings.EqualFold(c.Protocol, "http")
}

// Validate returns a list of non-fatal configuration warnings.
func (c *Config) Validate() []string {
	var warnings []string
	checks := []struct {
		cond bool
		msg  string
	}{
		{!strings.EqualFold(c.Protocol, "http") && !strings.EqualFold(c.Protocol, "https"), fmt.Sprintf("unknown protocol %q, falling back to https", c.Protocol)},
		{c.MaxConcurrentWrites < 1, "max_concurrent_writes below 1, writes will run sequentially"},
		{c.RetryAttempts < 1, "retry_attempts below 1, registry calls will not be retried"},
		{c.InfluxURL != "" && c.InfluxBucket == "", "influx URL provided but bucket is missing"},
		{c.InfluxBucket != "" && c.InfluxURL == "", "influx bucket provided but URL is missing"},
		{c.PasswordEnv != "" && c.RegistryUser == "", "password env var configured but registry user is missing"},
	}
	for _, ch := range checks {
		if ch.cond {
			warnings = append(warnings, ch.msg)
		}
	}
	switch strings.ToLower(c.NotificationLevel) {
	case "all", "failure", "none":
	default:
		warnings = append(warnings, fmt.Sprintf("invalid notification_level %q (expected all, failure or none)", c.NotificationLevel))
	}
	return warnings
}

// LoadConfigFromFile loads config from a YAML/JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set win over the file.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
