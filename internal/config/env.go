package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ApplyEnvOverrides reads configuration values from environment variables and
// overrides fields in the provided Config. Returns an error if parsing fails.
//
// Environment variables supported:
// - SEMVER_TAGGING_PROTOCOL (string, "https" or "http")
// - SEMVER_TAGGING_REGISTRY_USER (string)
// - SEMVER_TAGGING_PASSWORD_ENV (string, name of the variable holding the password)
// - SEMVER_TAGGING_REGISTRY_TIMEOUT (duration, e.g. "30s")
// - SEMVER_TAGGING_RETRY_ATTEMPTS (int)
// - SEMVER_TAGGING_RETRY_BACKOFF (duration, e.g. "500ms")
// - SEMVER_TAGGING_TAG_PREFIX (string, e.g. "v")
// - SEMVER_TAGGING_DRY_RUN (bool)
// - SEMVER_TAGGING_MAX_CONCURRENT_WRITES (int)
// - SEMVER_TAGGING_LOG_LEVEL, SEMVER_TAGGING_LOG_FILE, SEMVER_TAGGING_LOG_FORMAT
// - SEMVER_TAGGING_NOTIFICATION_LEVEL ("all", "failure", "none")
// - SEMVER_TAGGING_SLACK_WEBHOOK, _DISCORD_WEBHOOK, _TEAMS_WEBHOOK, _GENERIC_WEBHOOK_URL
// - SEMVER_TAGGING_PUSHGATEWAY_URL, SEMVER_TAGGING_PUSHGATEWAY_JOB
// - SEMVER_TAGGING_INFLUX_URL, _INFLUX_TOKEN, _INFLUX_ORG, _INFLUX_BUCKET
func ApplyEnvOverrides(cfg *Config) error {
	if err := applyRegistryEnv(cfg); err != nil {
		return err
	}
	if err := applyPromotionEnv(cfg); err != nil {
		return err
	}
	applyLoggingEnv(cfg)
	applyNotificationEnv(cfg)
	applyMetricsEnv(cfg)
	return nil
}

func applyRegistryEnv(cfg *Config) error {
	setStringEnv("SEMVER_TAGGING_PROTOCOL", &cfg.Protocol)
	setStringEnv("SEMVER_TAGGING_REGISTRY_USER", &cfg.RegistryUser)
	setStringEnv("SEMVER_TAGGING_PASSWORD_ENV", &cfg.PasswordEnv)
	setStringEnv("SEMVER_TAGGING_USER_AGENT", &cfg.UserAgent)
	if err := setDurationEnv("SEMVER_TAGGING_REGISTRY_TIMEOUT", &cfg.RegistryTimeout); err != nil {
		return err
	}
	if err := setDurationEnv("SEMVER_TAGGING_RETRY_BACKOFF", &cfg.RetryBackoff); err != nil {
		return err
	}
	return setIntEnv("SEMVER_TAGGING_RETRY_ATTEMPTS", &cfg.RetryAttempts)
}

func applyPromotionEnv(cfg *Config) error {
	setStringEnv("SEMVER_TAGGING_TAG_PREFIX", &cfg.TagPrefix)
	if err := setBoolEnv("SEMVER_TAGGING_DRY_RUN", func(b bool) { cfg.DryRun = b }); err != nil {
		return err
	}
	return setIntEnv("SEMVER_TAGGING_MAX_CONCURRENT_WRITES", &cfg.MaxConcurrentWrites)
}

func applyLoggingEnv(cfg *Config) {
	setStringEnv("SEMVER_TAGGING_LOG_LEVEL", &cfg.LogLevel)
	setStringEnv("SEMVER_TAGGING_LOG_FILE", &cfg.LogFile)
	setStringEnv("SEMVER_TAGGING_LOG_FORMAT", &cfg.LogFormat)
}

func applyNotificationEnv(cfg *Config) {
	setStringEnv("SEMVER_TAGGING_NOTIFICATION_LEVEL", &cfg.NotificationLevel)
	setStringEnv("SEMVER_TAGGING_SLACK_WEBHOOK", &cfg.SlackWebhook)
	setStringEnv("SEMVER_TAGGING_DISCORD_WEBHOOK", &cfg.DiscordWebhook)
	setStringEnv("SEMVER_TAGGING_TEAMS_WEBHOOK", &cfg.TeamsWebhook)
	setStringEnv("SEMVER_TAGGING_GENERIC_WEBHOOK_URL", &cfg.GenericWebhookURL)
}

func applyMetricsEnv(cfg *Config) {
	setStringEnv("SEMVER_TAGGING_PUSHGATEWAY_URL", &cfg.PushgatewayURL)
	setStringEnv("SEMVER_TAGGING_PUSHGATEWAY_JOB", &cfg.PushgatewayJob)
	setStringEnv("SEMVER_TAGGING_INFLUX_URL", &cfg.InfluxURL)
	setStringEnv("SEMVER_TAGGING_INFLUX_TOKEN", &cfg.InfluxToken)
	setStringEnv("SEMVER_TAGGING_INFLUX_ORG", &cfg.InfluxOrg)
	setStringEnv("SEMVER_TAGGING_INFLUX_BUCKET", &cfg.InfluxBucket)
}

func setStringEnv(env string, dst *string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// setBoolEnv is a small helper to parse boolean environment variables
func setBoolEnv(env string, setter func(bool)) error {
	if v := os.Getenv(env); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		setter(b)
	}
	return nil
}

func setIntEnv(env string, dst *int) error {
	if v := os.Getenv(env); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		*dst = n
	}
	return nil
}

func setDurationEnv(env string, dst *time.Duration) error {
	if v := os.Getenv(env); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		*dst = d
	}
	return nil
}
