package journal_test

import (
	"context"
	"testing"

	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/journal"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T, batchSize int) journal.Journal {
	t.Helper()

	j, err := journal.New(journal.Config{
		DBPath:    ":memory:",
		BatchSize: batchSize,
		Enabled:   true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func event(id string, kind rumevent.Type, session string, view *rumevent.ViewRef) *rumevent.Event {
	return &rumevent.Event{
		Type:          kind,
		ID:            id,
		Date:          1_000,
		ApplicationID: "app",
		SessionID:     session,
		View:          view,
		Payload:       map[string]any{"k": "v"},
	}
}

func TestRecordAndSummarize(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t, 10)
	home := &rumevent.ViewRef{ID: "view-1", Name: "home"}

	require.NoError(t, j.Record(ctx, event("a1", rumevent.TypeAction, "s1", home)))
	require.NoError(t, j.Record(ctx, event("r1", rumevent.TypeResource, "s1", home)))
	require.NoError(t, j.Record(ctx, event("e1", rumevent.TypeError, "s2", nil)))

	summary, err := j.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total, "events stay buffered until the batch fills")

	require.NoError(t, j.Flush())
	summary, err = j.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, journal.Summary{
		Total:      3,
		Attributed: 2,
		Sessions:   2,
		ByType: map[rumevent.Type]int{
			rumevent.TypeAction:   1,
			rumevent.TypeResource: 1,
			rumevent.TypeError:    1,
		},
	}, summary)
}

func TestFullBatchIsFlushed(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t, 2)

	require.NoError(t, j.Record(ctx, event("a1", rumevent.TypeAction, "s1", nil)))
	require.NoError(t, j.Record(ctx, event("a2", rumevent.TypeAction, "s1", nil)))

	summary, err := j.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
}

func TestViewVersionsReplaceEachOther(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t, 1)
	view := &rumevent.ViewRef{ID: "view-1"}

	require.NoError(t, j.Record(ctx, event("view-1", rumevent.TypeView, "s1", view)))
	require.NoError(t, j.Record(ctx, event("view-1", rumevent.TypeView, "s1", view)))

	summary, err := j.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ByType[rumevent.TypeView])
}

func TestRecordRejectsInvalidEvents(t *testing.T) {
	j := openTestJournal(t, 1)

	err := j.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, journal.ErrInvalidEvent))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = j.Record(ctx, event("a1", rumevent.TypeAction, "s1", nil))
	assert.True(t, errors.HasCode(err, journal.ErrOperationTimeout))
}

func TestRecordAfterClose(t *testing.T) {
	j, err := journal.New(journal.Config{DBPath: ":memory:", BatchSize: 1, Enabled: true})
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	err = j.Record(context.Background(), event("a1", rumevent.TypeAction, "s1", nil))
	assert.True(t, errors.HasCode(err, journal.ErrRecordFailed))
}

func TestDisabledJournalIsNoop(t *testing.T) {
	j, err := journal.New(journal.Config{})
	require.NoError(t, err)

	assert.False(t, j.Enabled())
	assert.NoError(t, j.Record(context.Background(), nil))
	summary, err := j.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  journal.Config
		code errors.ErrorCode
	}{
		{"missing path", journal.Config{Enabled: true, BatchSize: 1}, journal.ErrInvalidDBPath},
		{"zero batch", journal.Config{Enabled: true, DBPath: "x.db"}, journal.ErrInvalidBatchSize},
		{"negative timeout", journal.Config{Enabled: true, DBPath: "x.db", BatchSize: 1, BatchTimeout: -1}, journal.ErrInvalidBatchTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.HasCode(tt.cfg.Validate(), tt.code))
		})
	}
	assert.NoError(t, journal.DefaultConfig().Validate())
}

func TestAttachRecordsAssembledEvents(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t, 1)
	lc := lifecycle.New()

	sub := journal.Attach(ctx, lc, j)
	defer sub.Unsubscribe()

	lc.Notify(lifecycle.EventAssembled, *event("l1", rumevent.TypeLongTask, "s1", nil))
	lc.Notify(lifecycle.EventAssembled, rumevent.Event{Type: rumevent.TypeAction})

	summary, err := j.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
}
