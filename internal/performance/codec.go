package performance

import "encoding/json"

// DecodeEntry decodes the JSON form of a timeline entry, as produced by the
// platform's toJSON, into its concrete type.
func DecodeEntry(data []byte) (Entry, error) {
	var head struct {
		EntryType EntryType `json:"entryType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errFactory.Wrap(ErrInvalidEntry, err)
	}

	var entry Entry
	switch head.EntryType {
	case EntryResource:
		entry = &ResourceTiming{}
	case EntryPaint:
		entry = &PaintTiming{}
	case EntryNavigation:
		entry = &NavigationTiming{}
	case EntryLargestContentfulPaint:
		entry = &LargestContentfulPaint{}
	case EntryFirstInput:
		entry = &FirstInputTiming{}
	case EntryEvent:
		entry = &EventTiming{}
	case EntryLongTask:
		entry = &LongTaskTiming{}
	case EntryLayoutShift:
		entry = &LayoutShift{}
	default:
		return nil, errFactory.WithData(ErrUnknownEntryType, head.EntryType)
	}

	if err := json.Unmarshal(data, entry); err != nil {
		return nil, errFactory.Wrap(ErrInvalidEntry, err)
	}
	return entry, nil
}

// DecodeEntries decodes a batch, skipping entries that do not decode.
// The number of skipped entries is returned alongside.
func DecodeEntries(raw []json.RawMessage) (entries []Entry, skipped int) {
	entries = make([]Entry, 0, len(raw))
	for _, r := range raw {
		entry, err := DecodeEntry(r)
		if err != nil {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped
}
