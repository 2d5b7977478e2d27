// Package rumevent holds the event shapes exchanged between collection,
// assembly and the journal.
package rumevent

import "codeberg.org/mutker/rumcollect/internal/clock"

type Type string

const (
	TypeView     Type = "view"
	TypeAction   Type = "action"
	TypeResource Type = "resource"
	TypeLongTask Type = "long_task"
	TypeError    Type = "error"
)

// Raw is a collected event before session and view attribution.
type Raw struct {
	Type            Type
	ID              string
	StartTime       clock.RelativeTime
	Date            clock.TimeStamp
	Payload         any
	CustomerContext map[string]any
}

// ViewRef identifies the view an event happened in.
type ViewRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Event is an assembled event, ready to leave the collector.
type Event struct {
	Type          Type               `json:"type"`
	ID            string             `json:"id"`
	Date          clock.TimeStamp    `json:"date"`
	StartTime     clock.RelativeTime `json:"-"`
	ApplicationID string             `json:"application_id"`
	SessionID     string             `json:"session_id,omitempty"`
	View          *ViewRef           `json:"view,omitempty"`
	Payload       any                `json:"payload"`
	Context       map[string]any     `json:"context,omitempty"`
}

// Timing is one phase of a resource timing breakdown.
type Timing struct {
	Start    clock.ServerDuration `json:"start"`
	Duration clock.ServerDuration `json:"duration"`
}

// ResourceDetails is the phase breakdown of a resource fetch, relative to
// the fetch start. Phases that did not happen, or were reported with
// invalid timings in tolerant mode, are nil.
type ResourceDetails struct {
	Redirect  *Timing `json:"redirect,omitempty"`
	DNS       *Timing `json:"dns,omitempty"`
	Connect   *Timing `json:"connect,omitempty"`
	SSL       *Timing `json:"ssl,omitempty"`
	FirstByte *Timing `json:"first_byte,omitempty"`
	Download  *Timing `json:"download,omitempty"`
}

// IsEmpty reports whether no phase could be computed.
func (d ResourceDetails) IsEmpty() bool {
	return d.Redirect == nil && d.DNS == nil && d.Connect == nil &&
		d.SSL == nil && d.FirstByte == nil && d.Download == nil
}

type ResourcePayload struct {
	Type                 string               `json:"type"`
	URL                  string               `json:"url"`
	Method               string               `json:"method,omitempty"`
	Status               int                  `json:"status_code,omitempty"`
	Duration             clock.ServerDuration `json:"duration"`
	Size                 *int64               `json:"size,omitempty"`
	RenderBlockingStatus string               `json:"render_blocking_status,omitempty"`
	Details              *ResourceDetails     `json:"details,omitempty"`
}

type ActionPayload struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Source  string `json:"source"`
	Stack   string `json:"stack,omitempty"`
}

type LongTaskPayload struct {
	Duration clock.ServerDuration `json:"duration"`
}

// NavigationTimings are the document load milestones of the initial view.
type NavigationTimings struct {
	DomComplete      clock.Duration  `json:"dom_complete"`
	DomContentLoaded clock.Duration  `json:"dom_content_loaded"`
	DomInteractive   clock.Duration  `json:"dom_interactive"`
	LoadEvent        clock.Duration  `json:"load_event"`
	FirstByte        *clock.Duration `json:"first_byte,omitempty"`
}

type FirstInput struct {
	Delay          clock.Duration     `json:"delay"`
	Time           clock.RelativeTime `json:"time"`
	TargetSelector string             `json:"target_selector,omitempty"`
}

type LargestContentfulPaint struct {
	Value          clock.RelativeTime `json:"value"`
	TargetSelector string             `json:"target_selector,omitempty"`
}

// InitialViewMetrics accumulates the metrics only the first view of a page
// load has. Each field is filled independently by its own source.
type InitialViewMetrics struct {
	NavigationTimings      *NavigationTimings      `json:"navigation_timings,omitempty"`
	FirstContentfulPaint   *clock.Duration         `json:"first_contentful_paint,omitempty"`
	FirstInput             *FirstInput             `json:"first_input,omitempty"`
	LargestContentfulPaint *LargestContentfulPaint `json:"largest_contentful_paint,omitempty"`
}

// Clone returns a deep copy so snapshots handed to callbacks stay immutable.
func (m InitialViewMetrics) Clone() InitialViewMetrics {
	out := InitialViewMetrics{}
	if m.NavigationTimings != nil {
		nt := *m.NavigationTimings
		if nt.FirstByte != nil {
			fb := *nt.FirstByte
			nt.FirstByte = &fb
		}
		out.NavigationTimings = &nt
	}
	if m.FirstContentfulPaint != nil {
		fcp := *m.FirstContentfulPaint
		out.FirstContentfulPaint = &fcp
	}
	if m.FirstInput != nil {
		fi := *m.FirstInput
		out.FirstInput = &fi
	}
	if m.LargestContentfulPaint != nil {
		lcp := *m.LargestContentfulPaint
		out.LargestContentfulPaint = &lcp
	}
	return out
}

// IsComplete reports whether every source has reported.
func (m InitialViewMetrics) IsComplete() bool {
	return m.NavigationTimings != nil && m.FirstContentfulPaint != nil &&
		m.FirstInput != nil && m.LargestContentfulPaint != nil
}

type ViewPayload struct {
	Name               string               `json:"name,omitempty"`
	URL                string               `json:"url,omitempty"`
	LoadingType        string               `json:"loading_type"`
	TimeSpent          clock.ServerDuration `json:"time_spent"`
	IsActive           bool                 `json:"is_active"`
	DocumentVersion    int                  `json:"document_version"`
	InitialViewMetrics InitialViewMetrics   `json:"initial_view_metrics"`
	LoadEvent          *clock.Duration      `json:"load_event,omitempty"`
	EventCounts        EventCounts          `json:"event_counts"`
}

// EventCounts tallies the events attributed to a view.
type EventCounts struct {
	Action   int `json:"action"`
	Error    int `json:"error"`
	LongTask int `json:"long_task"`
	Resource int `json:"resource"`
}
