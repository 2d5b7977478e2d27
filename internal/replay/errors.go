package replay

import "codeberg.org/mutker/rumcollect/internal/errors"

const (
	ErrReadTrace      = errors.ErrorCode("replay_read_trace_failed")
	ErrInvalidRecord  = errors.ErrorCode("replay_invalid_record")
	ErrUnknownKind    = errors.ErrorCode("replay_unknown_record_kind")
	ErrOutOfOrder     = errors.ErrorCode("replay_record_out_of_order")
	ErrReplayCanceled = errors.ErrorCode("replay_canceled")
)

var errFactory = errors.New()
