package journal

import (
	"context"

	"codeberg.org/mutker/rumcollect/internal/rumevent"
)

// Journal keeps assembled events for local inspection
type Journal interface {
	Record(ctx context.Context, event *rumevent.Event) error
	Flush() error
	Summary(ctx context.Context) (Summary, error)
	Close() error
	Enabled() bool
}

// Repository defines the interface for event storage
type Repository interface {
	Record(event *rumevent.Event) error
	Flush() error
	Summary(ctx context.Context) (Summary, error)
	Close() error
}

// Summary describes the journal content
type Summary struct {
	Total      int
	Attributed int
	ByType     map[rumevent.Type]int
	Sessions   int
}
