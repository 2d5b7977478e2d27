package resource

import (
	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"github.com/google/uuid"
)

// Collection turns completed requests and non-request resource entries into
// raw resource events.
type Collection struct {
	lc      *lifecycle.LifeCycle
	matcher *Matcher
	clock   *clock.Clock
	intakes []string
	log     logger.Logger
	subs    []*observable.Subscription
}

func StartCollection(lc *lifecycle.LifeCycle, matcher *Matcher, clk *clock.Clock, intakes []string) *Collection {
	c := &Collection{
		lc:      lc,
		matcher: matcher,
		clock:   clk,
		intakes: intakes,
		log:     logger.Component("resource"),
	}

	c.subs = append(c.subs,
		lifecycle.On(lc, lifecycle.RequestCompleted, c.onRequest),
		lifecycle.On(lc, lifecycle.PerformanceEntriesCollected, c.onEntries),
	)
	return c
}

// Stop is idempotent.
func (c *Collection) Stop() {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
}

func (c *Collection) onRequest(req lifecycle.RequestCompleteEvent) {
	if !performance.IsAllowedRequestURL(c.intakes, req.URL) {
		return
	}
	c.lc.Notify(lifecycle.RawEventCollected, c.processRequest(req))
}

func (c *Collection) onEntries(entries []performance.Entry) {
	for _, entry := range entries {
		timing, ok := entry.(*performance.ResourceTiming)
		if !ok || IsRequestKind(timing) {
			continue
		}
		c.lc.Notify(lifecycle.RawEventCollected, c.processEntry(timing))
	}
}

func (c *Collection) processRequest(req lifecycle.RequestCompleteEvent) rumevent.Raw {
	kind := KindFetch
	if req.Kind == lifecycle.RequestXHR {
		kind = KindXHR
	}

	payload := rumevent.ResourcePayload{
		Type:     string(kind),
		URL:      SanitizeURL(req.URL),
		Method:   req.Method,
		Status:   req.Status,
		Duration: clock.ToServerDuration(req.Duration),
		Size:     req.ResponseSize,
	}

	startClocks := req.StartClocks
	entry, outcome := c.matcher.MatchWithOutcome(req)
	if entry != nil {
		startClocks = c.clock.RelativeToClocks(entry.StartTime)
		c.applyTiming(&payload, entry)
	} else {
		c.log.Debug().
			Str("url", payload.URL).
			Str("outcome", outcome.String()).
			Msg("No resource timing for request")
	}

	return rumevent.Raw{
		Type:      rumevent.TypeResource,
		ID:        uuid.NewString(),
		StartTime: startClocks.Relative,
		Date:      startClocks.TimeStamp,
		Payload:   payload,
	}
}

func (c *Collection) processEntry(entry *performance.ResourceTiming) rumevent.Raw {
	startClocks := c.clock.RelativeToClocks(entry.StartTime)
	payload := rumevent.ResourcePayload{
		Type: string(ComputeKind(entry)),
		URL:  SanitizeURL(entry.Name),
	}
	if entry.ResponseStatus > 0 {
		payload.Status = entry.ResponseStatus
	}
	c.applyTiming(&payload, entry)

	return rumevent.Raw{
		Type:      rumevent.TypeResource,
		ID:        uuid.NewString(),
		StartTime: startClocks.Relative,
		Date:      startClocks.TimeStamp,
		Payload:   payload,
	}
}

func (c *Collection) applyTiming(payload *rumevent.ResourcePayload, entry *performance.ResourceTiming) {
	payload.Duration = ComputeDuration(entry)
	payload.RenderBlockingStatus = entry.RenderBlockingStatus
	if size := ComputeSize(entry); size != nil {
		payload.Size = size
	}
	payload.Details = ComputeDetails(entry, c.matcher.Tolerant())
}
