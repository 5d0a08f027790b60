package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateIsMonotonic(t *testing.T) {
	b := New()
	b.Update("a", 1, 100, Good)
	b.Update("a", 2, 101, Good)
	e, ok := b.GetEntry("a")
	require.True(t, ok)
	assert.Equal(t, uint64(2), e.UpdateCount)
	assert.Equal(t, 2, e.Value)
}

func TestWriteStampsLastWrite(t *testing.T) {
	b := New()
	b.Write("setpoint", 12.5, 200)
	e, ok := b.GetEntry("setpoint")
	require.True(t, ok)
	assert.Equal(t, int64(200), e.LastWriteTimestamp)
	assert.Equal(t, Good, e.Quality)
}

func TestGetValueMissingKey(t *testing.T) {
	b := New()
	_, ok := b.GetValue("missing")
	assert.False(t, ok)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	b := New()
	b.Update("a", 1, 1, Good)
	snap := b.Snapshot()
	b.Update("a", 2, 2, Good)
	assert.Equal(t, 1, snap["a"].Value)
}

func TestClearRemovesAllEntries(t *testing.T) {
	b := New()
	b.Update("a", 1, 1, Good)
	b.Clear()
	_, ok := b.GetValue("a")
	assert.False(t, ok)
}

func TestSetStaticPreservesDynamicState(t *testing.T) {
	b := New()
	b.Update("a", 1, 1, Good)
	b.SetStatic("a", "int16", "RO")
	e, _ := b.GetEntry("a")
	assert.Equal(t, "int16", e.Static.DataType)
	assert.Equal(t, 1, e.Value)
}
