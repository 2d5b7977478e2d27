// Package telemetry instruments the collector itself with OpenTelemetry
// metrics.
package telemetry

import (
	"context"

	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "codeberg.org/mutker/rumcollect"

type instruments struct {
	matches   metric.Int64Counter
	assembled metric.Int64Counter
	evictions metric.Int64Counter
	entries   metric.Int64Counter
}

// New creates the instruments on mp.
func New(mp metric.MeterProvider) (Recorder, error) {
	errFactory := errors.New()
	meter := mp.Meter(instrumentationName)

	var (
		inst instruments
		err  error
	)

	if inst.matches, err = meter.Int64Counter("rum.resource.matches",
		metric.WithDescription("Request to resource timing match attempts by outcome")); err != nil {
		return nil, errFactory.Wrap(ErrInstrumentInit, err)
	}
	if inst.assembled, err = meter.Int64Counter("rum.events.assembled",
		metric.WithDescription("Assembled events by type and view attribution")); err != nil {
		return nil, errFactory.Wrap(ErrInstrumentInit, err)
	}
	if inst.evictions, err = meter.Int64Counter("rum.view_history.evictions",
		metric.WithDescription("Closed views dropped from the view history")); err != nil {
		return nil, errFactory.Wrap(ErrInstrumentInit, err)
	}
	if inst.entries, err = meter.Int64Counter("rum.performance.entries",
		metric.WithDescription("Performance entries collected by entry type")); err != nil {
		return nil, errFactory.Wrap(ErrInstrumentInit, err)
	}

	return &inst, nil
}

func (i *instruments) RecordMatch(outcome string) {
	i.matches.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (i *instruments) RecordAssembled(eventType string, attributed bool) {
	i.assembled.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", eventType),
		attribute.Bool("attributed", attributed),
	))
}

func (i *instruments) RecordEvictions(n int) {
	i.evictions.Add(context.Background(), int64(n))
}

func (i *instruments) RecordEntries(entryType string, n int) {
	i.entries.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("entry_type", entryType)))
}

// CountEntries records every collected performance entry batch of lc.
func CountEntries(lc *lifecycle.LifeCycle, r Recorder) *observable.Subscription {
	return lifecycle.On(lc, lifecycle.PerformanceEntriesCollected, func(entries []performance.Entry) {
		counts := make(map[performance.EntryType]int)
		for _, entry := range entries {
			counts[entry.EntryType()]++
		}
		for entryType, n := range counts {
			r.RecordEntries(string(entryType), n)
		}
	})
}
