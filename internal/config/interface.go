package config

// Option defines a configuration option that can be passed to Load
type Option func(*options)

type options struct {
	configPath   string
	configFormat string
	configData   []byte
	envPrefix    string
}

// WithConfigFile specifies an explicit configuration file path. It takes
// precedence over the --config flag and the environment.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithConfigData supplies the configuration document itself, in format
// ("json", "toml", "yaml"), for hosts without a file system.
func WithConfigData(format string, data []byte) Option {
	return func(o *options) {
		o.configFormat = format
		o.configData = data
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "RUMCOLLECT"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarn    LogLevel = "warn"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
