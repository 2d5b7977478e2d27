package config

import (
	"bytes"
	"net/url"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/history"
	"codeberg.org/mutker/rumcollect/internal/journal"
	"codeberg.org/mutker/rumcollect/internal/rum"
	"codeberg.org/mutker/rumcollect/internal/session"
	"codeberg.org/mutker/rumcollect/internal/telemetry"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultEnvPrefix  = "RUMCOLLECT"
	defaultConfigName = "rumcollect"
	defaultConfigDir  = "/etc/rumcollect"
)

type ViewHistoryConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	ClearInterval time.Duration `mapstructure:"clear_interval"`
}

type JournalConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DBPath       string        `mapstructure:"db_path"`
	BackupDir    string        `mapstructure:"backup_dir"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type MetricsConfig struct {
	ServiceName  string        `mapstructure:"service_name"`
	OTLPEndpoint string        `mapstructure:"otlp_endpoint"`
	Interval     time.Duration `mapstructure:"interval"`
}

type Config struct {
	LogLevel LogLevel `mapstructure:"log_level"`

	// Trace is the recorded page trace to replay.
	Trace string `mapstructure:"trace"`
	// Settle is how long the replay keeps running after the last record.
	Settle             time.Duration `mapstructure:"settle"`
	ResourceBufferSize int           `mapstructure:"resource_buffer_size"`

	ApplicationID           string         `mapstructure:"application_id"`
	InitialViewName         string         `mapstructure:"initial_view_name"`
	InitialViewURL          string         `mapstructure:"initial_view_url"`
	IntakeURLs              []string       `mapstructure:"intake_urls"`
	TolerantResourceTimings bool           `mapstructure:"tolerant_resource_timings"`
	ViewUpdateThrottle      time.Duration  `mapstructure:"view_update_throttle"`
	SessionMaxDuration      time.Duration  `mapstructure:"session_max_duration"`
	GlobalContext           map[string]any `mapstructure:"global_context"`

	ViewHistory ViewHistoryConfig `mapstructure:"view_history"`
	Journal     JournalConfig     `mapstructure:"journal"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	rumDefaults := rum.DefaultConfig()
	journalDefaults := journal.DefaultConfig()
	telemetryDefaults := telemetry.DefaultConfig()

	v.SetDefault("log_level", string(LogLevelWarning))
	v.SetDefault("trace", "")
	v.SetDefault("settle", 5*time.Second)
	v.SetDefault("resource_buffer_size", 250)

	v.SetDefault("application_id", "local")
	v.SetDefault("initial_view_name", "initial")
	v.SetDefault("initial_view_url", "")
	v.SetDefault("intake_urls", []string{})
	v.SetDefault("tolerant_resource_timings", false)
	v.SetDefault("view_update_throttle", rumDefaults.ViewUpdateThrottle.Std())
	v.SetDefault("session_max_duration", rumDefaults.Session.MaxDuration.Std())
	v.SetDefault("global_context", map[string]any{})

	v.SetDefault("view_history.timeout", rumDefaults.ViewHistory.Timeout.Std())
	v.SetDefault("view_history.clear_interval", rumDefaults.ViewHistory.ClearInterval.Std())

	v.SetDefault("journal.enabled", journalDefaults.Enabled)
	v.SetDefault("journal.db_path", journalDefaults.DBPath)
	v.SetDefault("journal.backup_dir", journalDefaults.BackupDir)
	v.SetDefault("journal.batch_size", journalDefaults.BatchSize)
	v.SetDefault("journal.batch_timeout", journalDefaults.BatchTimeout)

	v.SetDefault("metrics.service_name", telemetryDefaults.ServiceName)
	v.SetDefault("metrics.otlp_endpoint", telemetryDefaults.OTLPEndpoint)
	v.SetDefault("metrics.interval", telemetryDefaults.ExportInterval)
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":                 "log_level",
	"trace":                     "trace",
	"settle":                    "settle",
	"application-id":            "application_id",
	"initial-view-name":         "initial_view_name",
	"initial-view-url":          "initial_view_url",
	"intake-url":                "intake_urls",
	"tolerant-resource-timings": "tolerant_resource_timings",
	"journal":                   "journal.enabled",
	"journal-db":                "journal.db_path",
	"metrics-endpoint":          "metrics.otlp_endpoint",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("rumcollect", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringP("config", "c", "", "Path to the configuration file")
	fs.StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	fs.StringP("trace", "t", "", "Page trace to replay")
	fs.Duration("settle", 0, "How long to keep running after the last trace record")
	fs.String("application-id", "", "Application id attached to every event")
	fs.String("initial-view-name", "", "Name of the initial view")
	fs.String("initial-view-url", "", "URL of the initial view")
	fs.StringSlice("intake-url", nil, "Collector endpoint whose requests are never reported (repeatable)")
	fs.Bool("tolerant-resource-timings", false, "Accept resource timings with missing phases")
	fs.Bool("journal", false, "Record assembled events in the journal")
	fs.String("journal-db", "", "Path to the journal database")
	fs.String("metrics-endpoint", "", "OTLP/HTTP metrics endpoint")
	return fs
}

// Load reads the configuration from defaults, the configuration file, the
// environment and args, in increasing order of precedence.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if o.configData != nil {
		v.SetConfigType(o.configFormat)
		if err := v.ReadConfig(bytes.NewReader(o.configData)); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		path := o.configPath
		if path == "" {
			path, _ = fs.GetString("config")
		}
		if path == "" {
			path = os.Getenv(o.envPrefix + "_CONFIG")
		}
		if err := readConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath(defaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}
	return nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !c.LogLevel.IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel.String())
	}
	if c.ApplicationID == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "application_id must be set")
	}

	for name, d := range map[string]time.Duration{
		"view_update_throttle":        c.ViewUpdateThrottle,
		"session_max_duration":        c.SessionMaxDuration,
		"view_history.timeout":        c.ViewHistory.Timeout,
		"view_history.clear_interval": c.ViewHistory.ClearInterval,
	} {
		if d <= 0 {
			return errFactory.WithData(errors.ErrInvalidInterval, name+"="+d.String())
		}
	}
	if c.Settle < 0 {
		return errFactory.WithData(errors.ErrInvalidDuration, "settle="+c.Settle.String())
	}
	if c.ResourceBufferSize < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "resource_buffer_size must not be negative")
	}

	for _, raw := range c.IntakeURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errFactory.WithData(errors.ErrInvalidURL, raw)
		}
	}

	if err := c.JournalConfig().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := c.TelemetryConfig().Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}

func (c *Config) RUMConfig() rum.Config {
	viewHistory := history.Config{
		Timeout:       clock.FromStd(c.ViewHistory.Timeout),
		ClearInterval: clock.FromStd(c.ViewHistory.ClearInterval),
	}
	return rum.Config{
		ApplicationID:           c.ApplicationID,
		InitialViewName:         c.InitialViewName,
		InitialViewURL:          c.InitialViewURL,
		IntakeURLs:              c.IntakeURLs,
		TolerantResourceTimings: c.TolerantResourceTimings,
		ViewHistory:             viewHistory,
		Session: session.Config{
			MaxDuration: clock.FromStd(c.SessionMaxDuration),
			History:     viewHistory,
		},
		ViewUpdateThrottle: clock.FromStd(c.ViewUpdateThrottle),
		GlobalContext:      c.GlobalContext,
	}
}

func (c *Config) JournalConfig() journal.Config {
	return journal.Config{
		DBPath:       c.Journal.DBPath,
		BackupDir:    c.Journal.BackupDir,
		BatchSize:    c.Journal.BatchSize,
		BatchTimeout: c.Journal.BatchTimeout,
		Enabled:      c.Journal.Enabled,
	}
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		ServiceName:    c.Metrics.ServiceName,
		OTLPEndpoint:   c.Metrics.OTLPEndpoint,
		ExportInterval: c.Metrics.Interval,
	}
}
