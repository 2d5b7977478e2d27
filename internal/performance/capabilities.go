package performance

import "sync"

// Capabilities answers which entry types the platform can observe. The
// probe result is cached after the first successful probe; an inconclusive
// probe is retried on the next call.
type Capabilities struct {
	timeline Timeline

	mu        sync.Mutex
	probed    bool
	supported map[EntryType]struct{}
}

func NewCapabilities(tl Timeline) *Capabilities {
	return &Capabilities{timeline: tl}
}

// SupportsTimingEvent reports whether entries of type t can be observed.
func (c *Capabilities) SupportsTimingEvent(t EntryType) bool {
	if c == nil || c.timeline == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.probed {
		types, ok := c.timeline.SupportedEntryTypes()
		if !ok {
			return false
		}
		c.supported = make(map[EntryType]struct{}, len(types))
		for _, st := range types {
			c.supported[st] = struct{}{}
		}
		c.probed = true
	}

	_, ok := c.supported[t]
	return ok
}
