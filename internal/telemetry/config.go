package telemetry

import (
	"net/url"
	"time"

	"codeberg.org/mutker/rumcollect/internal/errors"
)

const (
	defaultServiceName    = "rumcollect"
	defaultExportInterval = 30 * time.Second
)

type Config struct {
	ServiceName string
	// OTLPEndpoint is the full OTLP/HTTP metrics URL. Empty keeps the
	// instruments local.
	OTLPEndpoint   string
	ExportInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		ServiceName:    defaultServiceName,
		ExportInterval: defaultExportInterval,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.ServiceName == "" {
		return errFactory.New(ErrInvalidServiceName)
	}
	if c.ExportInterval <= 0 {
		return errFactory.WithData(ErrInvalidInterval, c.ExportInterval.String())
	}
	if c.OTLPEndpoint != "" {
		u, err := url.Parse(c.OTLPEndpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errFactory.WithData(ErrInvalidEndpoint, c.OTLPEndpoint)
		}
	}
	return nil
}
