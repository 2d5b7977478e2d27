package telemetry

import "codeberg.org/mutker/rumcollect/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig      = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidServiceName = errors.ErrorCode("telemetry_invalid_service_name")
	ErrInvalidInterval    = errors.ErrorCode("telemetry_invalid_interval")
	ErrInvalidEndpoint    = errors.ErrorCode("telemetry_invalid_endpoint")

	// Setup Errors
	ErrExporterInit   = errors.ErrorCode("telemetry_exporter_init_failed")
	ErrInstrumentInit = errors.ErrorCode("telemetry_instrument_init_failed")

	// Operation Errors
	ErrServiceShutdown = errors.ErrorCode("telemetry_service_shutdown_failed")
)
