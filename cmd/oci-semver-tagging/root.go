package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aixigo/oci-semver-tagging/internal/config"
	"github.com/aixigo/oci-semver-tagging/internal/logging"
	"github.com/aixigo/oci-semver-tagging/internal/registry"
)

// app carries the streams and resolved configuration shared by subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags   globalFlags
	cfg     *config.Config
	cleanup func()
}

type globalFlags struct {
	configFile string
	envFile    string

	user          string
	protocol      string
	passwordStdin bool
	passwordEnv   string
	tagPrefix     string
	timeout       time.Duration
	maxWrites     int

	logLevel  string
	logFormat string
	logFile   string
	output    string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "oci-semver-tagging",
		Short: "Tag OCI images with semantic version aliases",
		Long: `oci-semver-tagging points the alias tags of a semantic version (major,
major.minor, full version and latest) at a freshly built image, moving an
alias only when the image is the newest release in that alias's line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configFile, "config", "", "path to a YAML config file")
	f.StringVar(&a.flags.envFile, "env-file", "", "path to a dotenv file loaded before environment overrides")
	f.StringVarP(&a.flags.user, "user", "u", "", "user that is able to log in to the registry")
	f.StringVarP(&a.flags.protocol, "protocol", "p", "https", "protocol used to reach the registry (https|http)")
	f.BoolVar(&a.flags.passwordStdin, "password-stdin", false, "read the registry password from stdin")
	f.StringVar(&a.flags.passwordEnv, "password-env", "", "read the registry password from this environment variable")
	f.StringVarP(&a.flags.tagPrefix, "tag-prefix", "t", "", "prefix put in front of every tag")
	f.DurationVar(&a.flags.timeout, "timeout", 30*time.Second, "timeout of a single registry request")
	f.IntVar(&a.flags.maxWrites, "max-concurrent-writes", 4, "number of alias tags written in parallel")
	f.StringVar(&a.flags.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	f.StringVar(&a.flags.logFormat, "log-format", "console", "log format (console|json)")
	f.StringVar(&a.flags.logFile, "log-file", "", "also write JSON logs to this file")
	f.StringVarP(&a.flags.output, "output", "o", "text", "output format (text|json)")

	root.AddCommand(newTagCmd(a), newValidateCmd(a), newVersionCmd(a))
	return root
}

// setup resolves configuration and initializes logging. Precedence, lowest
// first: defaults, config file, env file, environment, flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.flags.configFile != "" {
		c, err := config.LoadConfigFromFile(a.flags.configFile)
		if err != nil {
			return fmt.Errorf("failed loading config: %w", err)
		}
		cfg = c
	}
	if a.flags.envFile != "" {
		if err := config.LoadEnvFile(a.flags.envFile); err != nil {
			return err
		}
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}
	a.applyFlags(cmd, cfg)

	if a.flags.output != "text" && a.flags.output != "json" {
		return fmt.Errorf("unknown output format %q", a.flags.output)
	}

	cleanup, err := logging.Init(a.stderr, cfg.LogFile, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cleanup = cleanup
	a.cfg = cfg

	for _, w := range cfg.Validate() {
		logging.Get().Warn().Str("warning", w).Msg("config validation")
	}
	return nil
}

// applyFlags copies explicitly set flags over cfg.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("user", func() { cfg.RegistryUser = a.flags.user })
	set("protocol", func() { cfg.Protocol = a.flags.protocol })
	set("password-env", func() { cfg.PasswordEnv = a.flags.passwordEnv })
	set("tag-prefix", func() { cfg.TagPrefix = a.flags.tagPrefix })
	set("timeout", func() { cfg.RegistryTimeout = a.flags.timeout })
	set("max-concurrent-writes", func() { cfg.MaxConcurrentWrites = a.flags.maxWrites })
	set("log-level", func() { cfg.LogLevel = a.flags.logLevel })
	set("log-format", func() { cfg.LogFormat = a.flags.logFormat })
	set("log-file", func() { cfg.LogFile = a.flags.logFile })
	set("dry-run", func() { cfg.DryRun, _ = flags.GetBool("dry-run") })
}

// newClient builds the registry client from the resolved configuration.
func (a *app) newClient() (*registry.Client, error) {
	creds := registry.Credentials{
		User:          a.cfg.RegistryUser,
		PasswordStdin: a.flags.passwordStdin,
		PasswordEnv:   a.cfg.PasswordEnv,
	}
	auth, err := creds.Authenticator(a.stdin)
	if err != nil {
		return nil, err
	}
	return registry.NewClient(registry.Options{
		Insecure:      a.cfg.Insecure(),
		Auth:          auth,
		Timeout:       a.cfg.RegistryTimeout,
		RetryAttempts: a.cfg.RetryAttempts,
		RetryBackoff:  a.cfg.RetryBackoff,
		UserAgent:     a.cfg.UserAgent + "/" + BuildVersion,
	}), nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}
