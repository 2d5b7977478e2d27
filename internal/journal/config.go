package journal

import (
	"time"

	"codeberg.org/mutker/rumcollect/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "rumcollect.db"
	defaultBatchSize    = 100
	defaultBatchTimeout = 5 * time.Second

	memoryPath = ":memory:"
)

type Config struct {
	DBPath string
	// BackupDir receives a copy of a database whose schema is replaced.
	// Empty disables backups.
	BackupDir    string
	BatchSize    int
	BatchTimeout time.Duration
	Enabled      bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Enabled:      false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidBatchSize, c.BatchSize)
	}
	if c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidBatchTimeout, c.BatchTimeout.String())
	}
	return nil
}
