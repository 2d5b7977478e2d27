package viewmetrics

import "codeberg.org/mutker/rumcollect/internal/clock"

// Document is the page the metrics are measured on.
type Document interface {
	// RunOnReadyStateComplete runs fn once the page has finished loading,
	// synchronously when it already has.
	RunOnReadyStateComplete(fn func()) (stop func())

	// Hidden reports whether the page is currently hidden.
	Hidden() bool

	// OnHidden runs fn with the relative time of the next hide.
	OnHidden(fn func(at clock.RelativeTime)) (stop func())
}
