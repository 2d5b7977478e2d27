package telemetry

// Recorder describes the collector's own activity. It satisfies the
// recorder interfaces of the components it observes.
type Recorder interface {
	RecordMatch(outcome string)
	RecordAssembled(eventType string, attributed bool)
	RecordEvictions(n int)
	RecordEntries(entryType string, n int)
}
