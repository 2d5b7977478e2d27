// Package resource correlates completed requests with resource timing
// entries and turns both into resource events.
package resource

import (
	"sync"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/performance"
)

// errorMargin absorbs the clock resolution difference between the request
// observer and the performance timeline.
const errorMargin clock.Duration = 1

// Outcome is the result of a match attempt.
type Outcome int

const (
	Unmatched Outcome = iota
	Matched
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unmatched"
	}
}

// Recorder receives match outcomes.
type Recorder interface {
	RecordMatch(outcome string)
}

// Matcher finds the timeline entry of a completed request. An entry matches
// at most one request over the matcher's lifetime.
type Matcher struct {
	timeline performance.Timeline
	tolerant bool
	recorder Recorder

	mu       sync.Mutex
	consumed map[string]map[*performance.ResourceTiming]struct{}
}

func NewMatcher(tl performance.Timeline, tolerant bool, recorder Recorder) *Matcher {
	return &Matcher{
		timeline: tl,
		tolerant: tolerant,
		recorder: recorder,
		consumed: make(map[string]map[*performance.ResourceTiming]struct{}),
	}
}

// Tolerant reports whether invalid entries are accepted.
func (m *Matcher) Tolerant() bool { return m.tolerant }

// Match returns the entry of req, or nil when there is none or when it
// cannot be told apart from another candidate.
func (m *Matcher) Match(req lifecycle.RequestCompleteEvent) *performance.ResourceTiming {
	entry, _ := m.MatchWithOutcome(req)
	return entry
}

func (m *Matcher) MatchWithOutcome(req lifecycle.RequestCompleteEvent) (*performance.ResourceTiming, Outcome) {
	entry, outcome := m.match(req)
	if m.recorder != nil {
		m.recorder.RecordMatch(outcome.String())
	}
	return entry, outcome
}

func (m *Matcher) match(req lifecycle.RequestCompleteEvent) (*performance.ResourceTiming, Outcome) {
	if m.timeline == nil {
		return nil, Unmatched
	}

	sameName := m.timeline.ResourcesByName(req.URL)

	m.mu.Lock()
	defer m.mu.Unlock()

	consumed := m.pruneConsumed(req.URL, sameName)
	if len(sameName) == 0 {
		return nil, Unmatched
	}

	start := req.StartClocks.Relative
	end := clock.AddDuration(start, req.Duration)

	candidates := make([]*performance.ResourceTiming, 0, len(sameName))
	for _, entry := range sameName {
		if _, used := consumed[entry]; used {
			continue
		}
		if entry.Duration < 0 {
			continue
		}
		if !m.tolerant && !IsValidEntry(entry) {
			continue
		}
		if !isBetween(entry, start, end) {
			continue
		}
		candidates = append(candidates, entry)
	}

	entry, outcome := pickUnambiguous(candidates)
	if outcome == Matched {
		if consumed == nil {
			consumed = make(map[*performance.ResourceTiming]struct{})
			m.consumed[req.URL] = consumed
		}
		consumed[entry] = struct{}{}
	}
	return entry, outcome
}

// pickUnambiguous accepts a candidate only when it is the only one. Several
// equally valid candidates come from identical concurrent requests, and a
// missing breakdown is preferred over one borrowed from another request.
func pickUnambiguous(candidates []*performance.ResourceTiming) (*performance.ResourceTiming, Outcome) {
	switch len(candidates) {
	case 0:
		return nil, Unmatched
	case 1:
		return candidates[0], Matched
	default:
		return nil, Ambiguous
	}
}

func isBetween(entry *performance.ResourceTiming, start, end clock.RelativeTime) bool {
	entryEnd := clock.AddDuration(entry.StartTime, entry.Duration)
	return entry.StartTime >= clock.AddDuration(start, -errorMargin) &&
		entryEnd <= clock.AddDuration(end, errorMargin)
}

// pruneConsumed forgets consumed entries of url that the timeline no longer
// holds, so a cleared buffer does not leak them. Must be called with mu
// held.
func (m *Matcher) pruneConsumed(url string, present []*performance.ResourceTiming) map[*performance.ResourceTiming]struct{} {
	consumed, ok := m.consumed[url]
	if !ok {
		return nil
	}

	live := make(map[*performance.ResourceTiming]struct{}, len(present))
	for _, entry := range present {
		live[entry] = struct{}{}
	}
	for entry := range consumed {
		if _, ok := live[entry]; !ok {
			delete(consumed, entry)
		}
	}
	if len(consumed) == 0 {
		delete(m.consumed, url)
		return nil
	}
	return consumed
}
