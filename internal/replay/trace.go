// Package replay drives the collector from a recorded trace of browser
// signals, on virtual time.
package replay

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/errors"
)

// Kind is the kind of a trace record.
type Kind string

const (
	KindEntries      Kind = "entries"
	KindRequest      Kind = "request"
	KindView         Kind = "view"
	KindViewEnd      Kind = "view_end"
	KindLoad         Kind = "load"
	KindHidden       Kind = "hidden"
	KindVisible      Kind = "visible"
	KindSessionRenew Kind = "session_renew"
	KindAction       Kind = "action"
	KindError        Kind = "error"
)

// maxLineSize bounds a single trace record.
const maxLineSize = 4 << 20

// Request is a completed network call as seen by the application.
type Request struct {
	Kind     string             `json:"kind"`
	URL      string             `json:"url"`
	Method   string             `json:"method"`
	Status   int                `json:"status"`
	Start    clock.RelativeTime `json:"start"`
	Duration clock.Duration     `json:"duration"`
	Size     *int64             `json:"size,omitempty"`
}

// Record is one line of a trace. At is the relative time the record
// happens at; records are sorted by At.
type Record struct {
	At      clock.RelativeTime `json:"at"`
	Kind    Kind               `json:"kind"`
	Entries []json.RawMessage  `json:"entries,omitempty"`
	Request *Request           `json:"request,omitempty"`
	Name    string             `json:"name,omitempty"`
	URL     string             `json:"url,omitempty"`
	Message string             `json:"message,omitempty"`
	Source  string             `json:"source,omitempty"`
	Stack   string             `json:"stack,omitempty"`
	Context map[string]any     `json:"context,omitempty"`
}

type lineError struct {
	Line  int
	Error string
}

// Parse reads a JSON-lines trace. Blank lines and lines starting with '#'
// are skipped.
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		records []Record
		last    clock.RelativeTime
		line    int
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, errFactory.WithData(ErrInvalidRecord, lineError{Line: line, Error: err.Error()})
		}
		if err := rec.validate(); err != nil {
			return nil, err.WithData(lineError{Line: line, Error: err.Error()})
		}
		if rec.At < last {
			return nil, errFactory.WithData(ErrOutOfOrder, lineError{Line: line, Error: "time goes backwards"})
		}
		last = rec.At
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errFactory.Wrap(ErrReadTrace, err)
	}

	return records, nil
}

func (r Record) validate() errors.Error {
	switch r.Kind {
	case KindEntries, KindViewEnd, KindLoad, KindHidden, KindVisible, KindSessionRenew:
	case KindRequest:
		if r.Request == nil || r.Request.URL == "" {
			return errFactory.WithMessage(ErrInvalidRecord, "request record without url")
		}
	case KindView:
		if r.URL == "" {
			return errFactory.WithMessage(ErrInvalidRecord, "view record without url")
		}
	case KindAction:
		if r.Name == "" {
			return errFactory.WithMessage(ErrInvalidRecord, "action record without name")
		}
	case KindError:
		if r.Message == "" {
			return errFactory.WithMessage(ErrInvalidRecord, "error record without message")
		}
	default:
		return errFactory.WithData(ErrUnknownKind, r.Kind)
	}
	if r.At < 0 {
		return errFactory.WithMessage(ErrInvalidRecord, "negative time")
	}
	return nil
}
