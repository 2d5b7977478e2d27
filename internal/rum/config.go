package rum

import (
	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/history"
	"codeberg.org/mutker/rumcollect/internal/session"
	"codeberg.org/mutker/rumcollect/internal/view"
)

type Config struct {
	ApplicationID   string
	InitialViewName string
	InitialViewURL  string
	// IntakeURLs are the collector's own endpoints; requests to them are
	// never reported.
	IntakeURLs              []string
	TolerantResourceTimings bool
	ViewHistory             history.Config
	Session                 session.Config
	ViewUpdateThrottle      clock.Duration
	GlobalContext           map[string]any
}

func DefaultConfig() Config {
	return Config{
		ViewHistory:        history.DefaultConfig(),
		Session:            session.DefaultConfig(),
		ViewUpdateThrottle: view.DefaultUpdateThrottle,
	}
}
