package performance

import "codeberg.org/mutker/rumcollect/internal/clock"

// EntryType is the performance timeline entry type as the platform names it.
type EntryType string

const (
	EntryEvent                  EntryType = "event"
	EntryFirstInput             EntryType = "first-input"
	EntryLargestContentfulPaint EntryType = "largest-contentful-paint"
	EntryLayoutShift            EntryType = "layout-shift"
	EntryLongTask               EntryType = "longtask"
	EntryNavigation             EntryType = "navigation"
	EntryPaint                  EntryType = "paint"
	EntryResource               EntryType = "resource"
)

// Entry is one record of the performance timeline.
type Entry interface {
	EntryType() EntryType
	Start() clock.RelativeTime
}

// ResourceTiming is a resource fetch record. Every time field is relative to
// the clock origin and may be zero, negative or out of order when the
// platform reports garbage.
type ResourceTiming struct {
	Name                  string             `json:"name"`
	InitiatorType         string             `json:"initiatorType"`
	ResponseStatus        int                `json:"responseStatus,omitempty"`
	StartTime             clock.RelativeTime `json:"startTime"`
	Duration              clock.Duration     `json:"duration"`
	FetchStart            clock.RelativeTime `json:"fetchStart"`
	DomainLookupStart     clock.RelativeTime `json:"domainLookupStart"`
	DomainLookupEnd       clock.RelativeTime `json:"domainLookupEnd"`
	ConnectStart          clock.RelativeTime `json:"connectStart"`
	SecureConnectionStart clock.RelativeTime `json:"secureConnectionStart"`
	ConnectEnd            clock.RelativeTime `json:"connectEnd"`
	RequestStart          clock.RelativeTime `json:"requestStart"`
	ResponseStart         clock.RelativeTime `json:"responseStart"`
	ResponseEnd           clock.RelativeTime `json:"responseEnd"`
	RedirectStart         clock.RelativeTime `json:"redirectStart"`
	RedirectEnd           clock.RelativeTime `json:"redirectEnd"`
	TransferSize          int64              `json:"transferSize"`
	EncodedBodySize       int64              `json:"encodedBodySize"`
	DecodedBodySize       int64              `json:"decodedBodySize"`
	RenderBlockingStatus  string             `json:"renderBlockingStatus,omitempty"`
	TraceID               string             `json:"traceId,omitempty"`
}

func (*ResourceTiming) EntryType() EntryType       { return EntryResource }
func (e *ResourceTiming) Start() clock.RelativeTime { return e.StartTime }

type PaintTiming struct {
	Name      string             `json:"name"`
	StartTime clock.RelativeTime `json:"startTime"`
}

func (*PaintTiming) EntryType() EntryType       { return EntryPaint }
func (e *PaintTiming) Start() clock.RelativeTime { return e.StartTime }

// NavigationTiming holds the document load milestones.
type NavigationTiming struct {
	DomComplete              clock.RelativeTime `json:"domComplete"`
	DomContentLoadedEventEnd clock.RelativeTime `json:"domContentLoadedEventEnd"`
	DomInteractive           clock.RelativeTime `json:"domInteractive"`
	LoadEventEnd             clock.RelativeTime `json:"loadEventEnd"`
	ResponseStart            clock.RelativeTime `json:"responseStart"`
}

func (*NavigationTiming) EntryType() EntryType     { return EntryNavigation }
func (*NavigationTiming) Start() clock.RelativeTime { return 0 }

type LargestContentfulPaint struct {
	StartTime      clock.RelativeTime `json:"startTime"`
	Size           int64              `json:"size"`
	TargetSelector string             `json:"targetSelector,omitempty"`
}

func (*LargestContentfulPaint) EntryType() EntryType       { return EntryLargestContentfulPaint }
func (e *LargestContentfulPaint) Start() clock.RelativeTime { return e.StartTime }

type FirstInputTiming struct {
	Name            string             `json:"name"`
	StartTime       clock.RelativeTime `json:"startTime"`
	ProcessingStart clock.RelativeTime `json:"processingStart"`
	ProcessingEnd   clock.RelativeTime `json:"processingEnd"`
	Duration        clock.Duration     `json:"duration"`
	TargetSelector  string             `json:"targetSelector,omitempty"`
}

func (*FirstInputTiming) EntryType() EntryType       { return EntryFirstInput }
func (e *FirstInputTiming) Start() clock.RelativeTime { return e.StartTime }

type EventTiming struct {
	Name            string             `json:"name"`
	StartTime       clock.RelativeTime `json:"startTime"`
	ProcessingStart clock.RelativeTime `json:"processingStart"`
	ProcessingEnd   clock.RelativeTime `json:"processingEnd"`
	Duration        clock.Duration     `json:"duration"`
	InteractionID   int64              `json:"interactionId,omitempty"`
	TargetSelector  string             `json:"targetSelector,omitempty"`
}

func (*EventTiming) EntryType() EntryType       { return EntryEvent }
func (e *EventTiming) Start() clock.RelativeTime { return e.StartTime }

type LongTaskTiming struct {
	Name      string             `json:"name"`
	StartTime clock.RelativeTime `json:"startTime"`
	Duration  clock.Duration     `json:"duration"`
}

func (*LongTaskTiming) EntryType() EntryType       { return EntryLongTask }
func (e *LongTaskTiming) Start() clock.RelativeTime { return e.StartTime }

type LayoutShift struct {
	StartTime      clock.RelativeTime `json:"startTime"`
	Value          float64            `json:"value"`
	HadRecentInput bool               `json:"hadRecentInput"`
}

func (*LayoutShift) EntryType() EntryType       { return EntryLayoutShift }
func (e *LayoutShift) Start() clock.RelativeTime { return e.StartTime }
