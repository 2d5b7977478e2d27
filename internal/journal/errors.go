package journal

import "codeberg.org/mutker/rumcollect/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig       = errors.ErrInvalidConfig
	ErrInvalidDBPath       = errors.ErrorCode("journal_invalid_db_path")
	ErrInvalidBatchSize    = errors.ErrorCode("journal_invalid_batch_size")
	ErrInvalidBatchTimeout = errors.ErrorCode("journal_invalid_batch_timeout")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("journal_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("journal_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("journal_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("journal_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("journal_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Record Errors
	ErrInvalidEvent  = errors.ErrorCode("journal_invalid_event")
	ErrEncodeFailed  = errors.ErrorCode("journal_encode_failed")
	ErrRecordFailed  = errors.ErrorCode("journal_record_failed")
	ErrJournalClosed = errors.ErrorCode("journal_closed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
