// Package journal stores assembled events in a local sqlite database.
package journal

import (
	"context"

	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
)

type service struct {
	repo Repository
	cfg  Config
}

type noopJournal struct{}

func New(cfg Config) (Journal, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Event journal disabled, using no-op journal")
		return noopJournal{}, nil
	}

	repo, err := NewRepository(cfg, logger.Component("journal"))
	if err != nil {
		return nil, err
	}

	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Record(ctx context.Context, event *rumevent.Event) error {
	errFactory := errors.New()

	if event == nil || event.ID == "" {
		return errFactory.New(ErrInvalidEvent)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	if err := s.repo.Record(event); err != nil {
		return errFactory.Wrap(ErrRecordFailed, err)
	}
	return nil
}

func (s *service) Flush() error { return s.repo.Flush() }

func (s *service) Summary(ctx context.Context) (Summary, error) { return s.repo.Summary(ctx) }

func (s *service) Close() error { return s.repo.Close() }

func (*service) Enabled() bool { return true }

func (noopJournal) Record(context.Context, *rumevent.Event) error { return nil }

func (noopJournal) Flush() error { return nil }

func (noopJournal) Summary(context.Context) (Summary, error) {
	return Summary{ByType: map[rumevent.Type]int{}}, nil
}

func (noopJournal) Close() error { return nil }

func (noopJournal) Enabled() bool { return false }

// Attach records every assembled event of lc. Failures are logged; they
// never reach the collector.
func Attach(ctx context.Context, lc *lifecycle.LifeCycle, j Journal) *observable.Subscription {
	log := logger.Component("journal")
	return lifecycle.On(lc, lifecycle.EventAssembled, func(event rumevent.Event) {
		if err := j.Record(ctx, &event); err != nil {
			log.Warn().
				Err(err).
				Str("event_id", event.ID).
				Msg("Failed to journal event")
		}
	})
}
