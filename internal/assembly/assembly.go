// Package assembly attributes raw events to the session and view they
// happened in.
package assembly

import (
	"maps"

	"codeberg.org/mutker/rumcollect/internal/contexts"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
)

// Recorder receives the outcome of every assembled event.
type Recorder interface {
	RecordAssembled(eventType string, attributed bool)
}

type Config struct {
	ApplicationID string
	// GlobalContext is merged under every event's own context.
	GlobalContext map[string]any
}

// Assembler turns RawEventCollected notifications into EventAssembled ones.
// Events outside any session are dropped; events outside any view are kept
// without view attribution.
type Assembler struct {
	lc       *lifecycle.LifeCycle
	cfg      Config
	sessions contexts.SessionFinder
	views    contexts.ViewFinder
	recorder Recorder
	log      logger.Logger
	sub      *observable.Subscription
}

func Start(lc *lifecycle.LifeCycle, cfg Config, sessions contexts.SessionFinder, views contexts.ViewFinder, recorder Recorder) *Assembler {
	a := &Assembler{
		lc:       lc,
		cfg:      cfg,
		sessions: sessions,
		views:    views,
		recorder: recorder,
		log:      logger.Component("assembly"),
	}
	a.sub = lifecycle.On(lc, lifecycle.RawEventCollected, func(raw rumevent.Raw) {
		if event, ok := a.Assemble(raw); ok {
			lc.Notify(lifecycle.EventAssembled, event)
		}
	})
	return a
}

// Assemble attributes raw without publishing it.
func (a *Assembler) Assemble(raw rumevent.Raw) (rumevent.Event, bool) {
	sessionID, ok := a.sessions.FindSession(raw.StartTime)
	if !ok {
		a.log.Debug().
			Str("type", string(raw.Type)).
			Str("id", raw.ID).
			Msg("Dropping event outside of any session")
		return rumevent.Event{}, false
	}

	event := rumevent.Event{
		Type:          raw.Type,
		ID:            raw.ID,
		Date:          raw.Date,
		StartTime:     raw.StartTime,
		ApplicationID: a.cfg.ApplicationID,
		SessionID:     sessionID,
		View:          a.viewOf(raw),
		Payload:       raw.Payload,
		Context:       a.context(raw.CustomerContext),
	}

	if a.recorder != nil {
		a.recorder.RecordAssembled(string(event.Type), event.View != nil)
	}
	return event, true
}

// viewOf returns the view active at the event start. View events describe
// their own view, which may already be gone from the history.
func (a *Assembler) viewOf(raw rumevent.Raw) *rumevent.ViewRef {
	if raw.Type == rumevent.TypeView {
		ref := &rumevent.ViewRef{ID: raw.ID}
		if payload, ok := raw.Payload.(rumevent.ViewPayload); ok {
			ref.Name = payload.Name
		}
		return ref
	}

	view, ok := a.views.FindView(raw.StartTime)
	if !ok {
		return nil
	}
	return &rumevent.ViewRef{ID: view.ID, Name: view.Name}
}

func (a *Assembler) context(own map[string]any) map[string]any {
	if len(a.cfg.GlobalContext) == 0 && len(own) == 0 {
		return nil
	}
	merged := maps.Clone(a.cfg.GlobalContext)
	if merged == nil {
		merged = make(map[string]any, len(own))
	}
	maps.Copy(merged, own)
	return merged
}

// Stop is idempotent.
func (a *Assembler) Stop() {
	a.sub.Unsubscribe()
}
