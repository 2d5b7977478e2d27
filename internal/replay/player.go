package replay

import (
	"context"
	"time"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/collect"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/schedule"
)

// Target is the collector a trace is played into.
type Target interface {
	StartView(name, url string) string
	AddAction(action collect.Action)
	AddError(e collect.Error)
	CompleteRequest(req lifecycle.RequestCompleteEvent)
	RenewSession() string
	Stop()
}

type Stats struct {
	Records        int
	Entries        int
	SkippedEntries int
	Requests       int
}

// Player owns the simulated platform a trace runs on.
type Player struct {
	scheduler *schedule.Virtual
	clock     *clock.Clock
	timeline  *Timeline
	document  *Document
	log       logger.Logger
}

// NewPlayer returns a player whose clock origin is base.
func NewPlayer(base time.Time, resourceBufferSize int) *Player {
	v := schedule.NewVirtual(base)
	return &Player{
		scheduler: v,
		clock:     clock.NewFrom(v.Now),
		timeline:  NewTimeline(resourceBufferSize),
		document:  NewDocument(),
		log:       logger.Component("replay"),
	}
}

func (p *Player) Scheduler() *schedule.Virtual { return p.scheduler }

func (p *Player) Clock() *clock.Clock { return p.clock }

func (p *Player) Timeline() *Timeline { return p.timeline }

func (p *Player) Document() *Document { return p.document }

// Play applies records in order, moving virtual time to each record first,
// then lets settle elapse so throttled work completes.
func (p *Player) Play(ctx context.Context, records []Record, target Target, settle time.Duration) (Stats, error) {
	var stats Stats

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, errFactory.Wrap(ErrReplayCanceled, err)
		}

		p.scheduler.AdvanceTo(clock.Duration(rec.At).Std())
		p.apply(rec, target, &stats)
		stats.Records++
	}

	p.scheduler.Advance(settle)
	return stats, nil
}

func (p *Player) apply(rec Record, target Target, stats *Stats) {
	switch rec.Kind {
	case KindEntries:
		entries, skipped := performance.DecodeEntries(rec.Entries)
		if skipped > 0 {
			p.log.Debug().
				Int("skipped", skipped).
				Float64("at", float64(rec.At)).
				Msg("Skipped undecodable entries")
		}
		stats.Entries += len(entries)
		stats.SkippedEntries += skipped
		p.timeline.Record(entries...)

	case KindRequest:
		req := rec.Request
		kind := lifecycle.RequestFetch
		if req.Kind == string(lifecycle.RequestXHR) {
			kind = lifecycle.RequestXHR
		}
		target.CompleteRequest(lifecycle.RequestCompleteEvent{
			Kind:         kind,
			URL:          req.URL,
			Method:       req.Method,
			Status:       req.Status,
			StartClocks:  p.clock.RelativeToClocks(req.Start),
			Duration:     req.Duration,
			ResponseSize: req.Size,
		})
		stats.Requests++

	case KindView:
		target.StartView(rec.Name, rec.URL)

	case KindViewEnd:
		target.Stop()

	case KindLoad:
		p.document.Load()

	case KindHidden:
		p.document.Hide(rec.At)

	case KindVisible:
		p.document.Show()

	case KindSessionRenew:
		target.RenewSession()

	case KindAction:
		at := p.clock.RelativeToClocks(rec.At)
		target.AddAction(collect.Action{Name: rec.Name, Context: rec.Context, StartClocks: &at})

	case KindError:
		at := p.clock.RelativeToClocks(rec.At)
		target.AddError(collect.Error{
			Message:     rec.Message,
			Source:      rec.Source,
			Stack:       rec.Stack,
			Context:     rec.Context,
			StartClocks: &at,
		})
	}
}
