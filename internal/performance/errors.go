package performance

import "codeberg.org/mutker/rumcollect/internal/errors"

const (
	ErrObserverUnsupported = errors.ErrorCode("performance_observer_unsupported")
	ErrOptionsRejected     = errors.ErrorCode("performance_options_rejected")
	ErrInvalidEntry        = errors.ErrorCode("performance_invalid_entry")
	ErrUnknownEntryType    = errors.ErrorCode("performance_unknown_entry_type")
)

var errFactory = errors.New()
