package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightslider/internal/db"
)

func openTestLedger(t *testing.T) (*Ledger, *time.Time) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(database.DB)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLedger_AppendAndQuery(t *testing.T) {
	l, now := openTestLedger(t)

	require.NoError(t, l.Append(Entry{
		EventType: EventCommandApplied,
		Target:    "3",
		Service:   "turn_on",
		Payload:   map[string]any{"brightness_pct": 40.0},
		Source:    "session-a",
	}))
	*now = now.Add(time.Second)
	require.NoError(t, l.Append(Entry{
		EventType: EventCommandFailed,
		Target:    "3",
		Service:   "turn_on",
		Payload:   map[string]any{"brightness_pct": 41.0},
		Committed: true,
		Error:     "bridge unreachable",
	}))
	require.NoError(t, l.Append(Entry{EventType: EventCommandApplied, Target: "7", Service: "turn_on"}))

	byTarget, err := l.GetByTarget("3", 10)
	require.NoError(t, err)
	require.Len(t, byTarget, 2)
	assert.Equal(t, EventCommandFailed, byTarget[0].EventType)
	assert.True(t, byTarget[0].Committed)
	assert.Equal(t, "bridge unreachable", byTarget[0].Error)
	assert.Equal(t, 41.0, byTarget[0].Payload["brightness_pct"])
	assert.Equal(t, "session-a", byTarget[1].Source)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), byTarget[1].Timestamp)

	applied, err := l.GetByType(EventCommandApplied, 10)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
}

func TestLedger_AppliedOncePerIdempotencyKey(t *testing.T) {
	l, _ := openTestLedger(t)

	e := Entry{EventType: EventCommandApplied, Target: "3", Service: "turn_on", Committed: true, IdempotencyKey: "k1"}
	require.NoError(t, l.Append(e))
	require.NoError(t, l.Append(e))

	assert.True(t, l.HasApplied("k1"))
	assert.False(t, l.HasApplied("k2"))
	assert.False(t, l.HasApplied(""))

	entries, err := l.GetByTarget("3", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_Retention(t *testing.T) {
	l, now := openTestLedger(t)

	require.NoError(t, l.Append(Entry{EventType: EventCommandApplied, Target: "1", Service: "turn_on"}))
	*now = now.Add(48 * time.Hour)
	require.NoError(t, l.Append(Entry{EventType: EventCommandApplied, Target: "1", Service: "turn_on"}))

	deleted, err := l.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	purged, err := l.Purge()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
