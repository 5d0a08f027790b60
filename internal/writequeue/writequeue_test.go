package writequeue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueWriteOnlyLatestValue(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Enqueue(100, 16, 1, TagInfo{TreePath: "t"}, 1))
	require.NoError(t, q.Enqueue(100, 16, 2, TagInfo{TreePath: "t"}, 2))
	require.NoError(t, q.Enqueue(100, 16, 3, TagInfo{TreePath: "t"}, 3))

	assert.Equal(t, 1, q.Count())
	pending := q.GetPending(10)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Value)

	stats := q.GetStats()
	assert.Equal(t, 1, stats.Enqueued)
	assert.GreaterOrEqual(t, stats.Overwritten, 2)
}

func TestEnqueueRejectsWhenFullForNewKey(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Enqueue(1, 6, 10, TagInfo{}, 1))
	err := q.Enqueue(2, 6, 20, TagInfo{}, 2)
	require.Error(t, err)

	// existing key still accepted even when full
	require.NoError(t, q.Enqueue(1, 6, 99, TagInfo{}, 3))
	assert.Equal(t, 1, q.Count())
}

func TestMarkCompletedRemovesEntry(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Enqueue(1, 6, 10, TagInfo{}, 1))
	q.MarkCompleted(1, 6)
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 1, q.GetStats().Executed)
}

func TestMarkFailedKeepsEntry(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Enqueue(1, 6, 10, TagInfo{}, 1))
	q.MarkFailed(1, 6, "timeout")
	assert.False(t, q.IsEmpty())
	assert.Equal(t, 1, q.GetStats().Failed)
}

func TestAtMostOneEntryPerKey(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Enqueue(1, 6, 10, TagInfo{}, 1))
	require.NoError(t, q.Enqueue(1, 16, 20, TagInfo{}, 2)) // different fc, same address
	assert.Equal(t, 2, q.Count())
}

func TestGetPendingIsFIFOBySlot(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Enqueue(3, 16, "c", TagInfo{}, 1))
	require.NoError(t, q.Enqueue(1, 16, "a", TagInfo{}, 2))
	require.NoError(t, q.Enqueue(2, 16, "b", TagInfo{}, 3))

	pending := q.GetPending(10)
	require.Len(t, pending, 3)
	assert.Equal(t, 3, pending[0].Address)
	assert.Equal(t, 1, pending[1].Address)
	assert.Equal(t, 2, pending[2].Address)

	// overwriting an existing key keeps its original slot position.
	require.NoError(t, q.Enqueue(3, 16, "c2", TagInfo{}, 4))
	pending = q.GetPending(10)
	require.Len(t, pending, 3)
	assert.Equal(t, 3, pending[0].Address)
	assert.Equal(t, "c2", pending[0].Value)

	limited := q.GetPending(2)
	require.Len(t, limited, 2)
	assert.Equal(t, 3, limited[0].Address)
	assert.Equal(t, 1, limited[1].Address)
}

func TestClear(t *testing.T) {
	q := New(10)
	require.NoError(t, q.Enqueue(1, 6, 10, TagInfo{}, 1))
	q.Clear()
	assert.True(t, q.IsEmpty())
}
