package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	l, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndRecent(t *testing.T) {
	l := openTestLedger(t)

	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		err := l.Append(Record{
			RunID:      "run-1",
			Iteration:  i,
			PromptKind: "continuation",
			Outcome:    "continue",
			StartedAt:  started,
			FinishedAt: started.Add(2 * time.Minute),
		})
		require.NoError(t, err)
	}

	records, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, 3, records[0].Iteration)
	assert.Equal(t, 2, records[1].Iteration)
	assert.Equal(t, "run-1", records[0].RunID)
	assert.Equal(t, "continue", records[0].Outcome)
}

func TestRecentEmpty(t *testing.T) {
	l := openTestLedger(t)

	records, err := l.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCount(t *testing.T) {
	l := openTestLedger(t)

	count, err := l.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	now := time.Now()
	require.NoError(t, l.Append(Record{
		RunID:        "run-2",
		Iteration:    1,
		PromptKind:   "initializer",
		Outcome:      "rate_limited",
		StartedAt:    now,
		FinishedAt:   now.Add(time.Minute),
		SleepSeconds: 1800,
		Note:         "reset time unknown, fallback sleep",
	}))

	count, err = l.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	l, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, l.Append(Record{
		RunID: "run-3", Iteration: 1, PromptKind: "continuation",
		Outcome: "error", StartedAt: now, FinishedAt: now,
	}))
	require.NoError(t, l.Close())

	l, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()

	records, err := l.Recent(5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "error", records[0].Outcome)
}
