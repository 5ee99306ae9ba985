package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estimates-cli/internal/model"
)

func newTestLog(t *testing.T) *RunLog {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() }) //nolint:errcheck
	return l
}

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	t := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestStartComplete(t *testing.T) {
	l := newTestLog(t)
	l.now = fixedClock()
	ctx := context.Background()

	id, err := l.Start(ctx, "digitize")
	require.NoError(t, err)
	assert.Len(t, id, 36)

	err = l.Complete(ctx, id, &Result{
		Summaries: []model.Summary{
			{Stage: "extract", Found: 2, Cached: 1},
			{Stage: "digitize", Found: 1, Skipped: 2, Failed: 1},
		},
		Metadata: map[string]any{"new_rows": 1},
	})
	require.NoError(t, err)

	entries, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, StatusComplete, e.Status)
	assert.Equal(t, "digitize", e.Command)
	assert.Equal(t, 3, e.Found)
	assert.Equal(t, 1, e.Cached)
	assert.Equal(t, 2, e.Skipped)
	assert.Equal(t, 1, e.Failed)
	assert.Equal(t, time.Second, e.Duration())
	assert.Equal(t, float64(1), e.Metadata["new_rows"])
	assert.Empty(t, e.Error)
}

func TestFail(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	id, err := l.Start(ctx, "run")
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, id, "ocr: oracle unauthorized", nil))

	entries, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusFailed, entries[0].Status)
	assert.Equal(t, "ocr: oracle unauthorized", entries[0].Error)
	assert.NotNil(t, entries[0].CompletedAt)
}

func TestFinishUnknownRun(t *testing.T) {
	l := newTestLog(t)
	err := l.Complete(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestListOrderAndLimit(t *testing.T) {
	l := newTestLog(t)
	l.now = fixedClock()
	ctx := context.Background()

	for _, cmd := range []string{"download", "extract", "digitize"} {
		_, err := l.Start(ctx, cmd)
		require.NoError(t, err)
	}

	entries, err := l.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "digitize", entries[0].Command)
	assert.Equal(t, "extract", entries[1].Command)
	assert.Equal(t, StatusRunning, entries[0].Status)
	assert.Zero(t, entries[0].Duration())
}

func TestLastSuccess(t *testing.T) {
	l := newTestLog(t)
	l.now = fixedClock()
	ctx := context.Background()

	last, err := l.LastSuccess(ctx, "download")
	require.NoError(t, err)
	assert.Nil(t, last)

	id, err := l.Start(ctx, "download")
	require.NoError(t, err)
	require.NoError(t, l.Complete(ctx, id, nil))

	failed, err := l.Start(ctx, "download")
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, failed, "boom", nil))

	last, err = l.LastSuccess(ctx, "download")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, time.Date(2024, 1, 5, 12, 0, 1, 0, time.UTC), *last)
}
