package contexts

import "codeberg.org/mutker/rumcollect/internal/clock"

// SessionFinder returns the id of the session tracked at a relative time.
type SessionFinder interface {
	FindSession(at clock.RelativeTime) (string, bool)
}

type ViewFinder interface {
	FindView(at clock.RelativeTime) (ViewContext, bool)
}

type ViewRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Internal is the attribution attached to every event.
type Internal struct {
	ApplicationID string  `json:"application_id"`
	SessionID     string  `json:"session_id"`
	View          ViewRef `json:"view"`
}

// InternalContext combines session and view lookups.
type InternalContext struct {
	applicationID string
	sessions      SessionFinder
	views         ViewFinder
}

func NewInternalContext(applicationID string, sessions SessionFinder, views ViewFinder) *InternalContext {
	return &InternalContext{
		applicationID: applicationID,
		sessions:      sessions,
		views:         views,
	}
}

// Get returns the context at startTime. It is only available when both a
// session and a view are found.
func (ic *InternalContext) Get(startTime clock.RelativeTime) (Internal, bool) {
	view, ok := ic.views.FindView(startTime)
	if !ok {
		return Internal{}, false
	}
	sessionID, ok := ic.sessions.FindSession(startTime)
	if !ok {
		return Internal{}, false
	}

	return Internal{
		ApplicationID: ic.applicationID,
		SessionID:     sessionID,
		View: ViewRef{
			ID:   view.ID,
			Name: view.Name,
			URL:  view.URL,
		},
	}, true
}
