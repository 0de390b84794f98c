package runevents

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrader/arena/internal/domain"
)

func newTestStore(t *testing.T) *WALStore {
	t.Helper()
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndReadSnapshots(t *testing.T) {
	store := newTestStore(t)

	event := domain.SnapshotEvent{
		Agent:      "momentum-1",
		Date:       "2025-01-03",
		SequenceID: 2,
		Cash:       decimal.NewFromInt(8980),
		Holdings:   map[string]int64{"AAPL": 10},
		Action:     "buy",
		Symbol:     "AAPL",
		Amount:     10,
		Time:       time.Now().UTC(),
	}
	require.NoError(t, store.SaveSnapshot(event))

	records, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "momentum-1", records[0].Event.Agent)
	assert.Equal(t, int64(2), records[0].Event.SequenceID)
	assert.True(t, records[0].Event.Cash.Equal(decimal.NewFromInt(8980)))

	// nothing new after the last index
	again, err := store.SnapshotsAfter(records[0].Index)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestStreamsAreSeparatedByKind(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveSnapshot(domain.SnapshotEvent{
		Agent: "a", Date: "2025-01-03", SequenceID: 2, Cash: decimal.NewFromInt(10000),
	}))
	require.NoError(t, store.SaveDecision(domain.DecisionEvent{
		Agent: "a", Date: "2025-01-03", Status: domain.DayCommitted, Action: "hold",
	}))

	snapshots, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	decisions, err := store.DecisionsAfter(0)
	require.NoError(t, err)

	assert.Len(t, snapshots, 1)
	assert.Len(t, decisions, 1)
	assert.Equal(t, domain.DayCommitted, decisions[0].Event.Status)
}

func TestEventsRequireAgent(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.SaveSnapshot(domain.SnapshotEvent{Date: "2025-01-03"}))
	assert.Error(t, store.SaveDecision(domain.DecisionEvent{Date: "2025-01-03"}))
}

func TestReplayAfterReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveDecision(domain.DecisionEvent{
		Agent: "a", Date: "2025-01-03", Status: domain.DayHeldRejected, Action: "hold",
	}))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	decisions, err := reopened.DecisionsAfter(0)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, domain.DayHeldRejected, decisions[0].Event.Status)
}
