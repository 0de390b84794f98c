package tracelog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrader/arena/internal/domain"
)

func TestTraceLogRoundTrip(t *testing.T) {
	log := New(t.TempDir(), "momentum-nasdaq")
	date := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, log.Prompt(date, "sess-1", "system", "you are a trading agent"))
	require.NoError(t, log.Response(date, "sess-1", `<DECISION>{"action":"hold"}</DECISION>`))
	require.NoError(t, log.Decision(date, "sess-1", &domain.Decision{Action: "hold", Confidence: 0.4, Reasoning: "uncertain"}))
	require.NoError(t, log.Status(date, "sess-1", domain.DayCommitted, ""))

	records, err := log.Read(date)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "system", records[0].Role)
	assert.Equal(t, "assistant", records[1].Role)
	require.NotNil(t, records[2].Decision)
	assert.Equal(t, "hold", records[2].Decision.Action)
	assert.Equal(t, domain.DayCommitted, records[3].Status)
	for _, record := range records {
		assert.Equal(t, "sess-1", record.SessionID)
		assert.False(t, record.Timestamp.IsZero())
	}
}

func TestTraceLogSeparatesDays(t *testing.T) {
	log := New(t.TempDir(), "a")
	day1 := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	require.NoError(t, log.Error(day1, "s", "transient failure"))
	require.NoError(t, log.Status(day2, "s", domain.DayHeldTransientFailure, "retries exhausted"))

	records, err := log.Read(day1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "transient failure", records[0].Error)

	records, err = log.Read(day2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.DayHeldTransientFailure, records[0].Status)
}

func TestReadMissingDay(t *testing.T) {
	log := New(t.TempDir(), "a")
	records, err := log.Read(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, records)
}
