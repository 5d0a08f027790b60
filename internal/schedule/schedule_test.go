package schedule

import (
	"testing"

	"github.com/edgeflow/modgate/internal/mbmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupReadsMergesContiguousTags(t *testing.T) {
	due := []DueTag{
		{TreePath: "a", UnitID: 1, AddressType: mbmap.HoldingRegister, Offset: 0, RegisterCount: 1},
		{TreePath: "b", UnitID: 1, AddressType: mbmap.HoldingRegister, Offset: 1, RegisterCount: 2},
		{TreePath: "c", UnitID: 1, AddressType: mbmap.HoldingRegister, Offset: 5, RegisterCount: 1},
	}
	batches := GroupReads(due, 120)
	require.Len(t, batches, 1)
	assert.Equal(t, 0, batches[0].Start)
	assert.Equal(t, 6, batches[0].Count)
	assert.Len(t, batches[0].Tags, 3)
	assert.Equal(t, 3, batches[0].FunctionCode)
}

func TestGroupReadsSplitsWhenExceedingMax(t *testing.T) {
	due := []DueTag{
		{TreePath: "a", UnitID: 1, AddressType: mbmap.HoldingRegister, Offset: 0, RegisterCount: 1},
		{TreePath: "b", UnitID: 1, AddressType: mbmap.HoldingRegister, Offset: 200, RegisterCount: 1},
	}
	batches := GroupReads(due, 120)
	require.Len(t, batches, 2)
}

func TestGroupReadsBucketsByUnitAndType(t *testing.T) {
	due := []DueTag{
		{TreePath: "a", UnitID: 1, AddressType: mbmap.HoldingRegister, Offset: 0, RegisterCount: 1},
		{TreePath: "b", UnitID: 2, AddressType: mbmap.HoldingRegister, Offset: 0, RegisterCount: 1},
		{TreePath: "c", UnitID: 1, AddressType: mbmap.Coil, Offset: 0, RegisterCount: 1},
	}
	batches := GroupReads(due, 120)
	assert.Len(t, batches, 3)
}

func TestGroupReadsEmptyInput(t *testing.T) {
	assert.Empty(t, GroupReads(nil, 120))
}

func TestGroupReadsRespectsMaxRegsInvariant(t *testing.T) {
	due := []DueTag{
		{TreePath: "a", UnitID: 1, AddressType: mbmap.HoldingRegister, Offset: 0, RegisterCount: 1},
		{TreePath: "b", UnitID: 1, AddressType: mbmap.HoldingRegister, Offset: 50, RegisterCount: 1},
	}
	batches := GroupReads(due, 40)
	for _, b := range batches {
		assert.LessOrEqual(t, b.Count, 40)
	}
	require.Len(t, batches, 2)
}
