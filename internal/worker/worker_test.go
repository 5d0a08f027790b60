package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeflow/modgate/internal/codec"
	"github.com/edgeflow/modgate/internal/mbmap"
	"github.com/edgeflow/modgate/internal/schedule"
	"github.com/edgeflow/modgate/internal/scaling"
)

func newTestWorker(tags []Tag) *Worker {
	next := make(map[string]time.Time, len(tags))
	for _, t := range tags {
		next[t.TreePath] = time.Now()
	}
	return &Worker{
		cfg:     Config{Encoding: codec.Encoding{ByteOrderBig: true, WordOrderLowHigh: false}},
		tags:    tags,
		nextDue: next,
		done:    make(chan struct{}),
	}
}

func TestDueTagsSelectsOnlyPastDeadlines(t *testing.T) {
	w := newTestWorker([]Tag{{TreePath: "a"}, {TreePath: "b"}})
	w.nextDue["b"] = time.Now().Add(time.Hour)

	due := w.dueTags()
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].TreePath)
}

func TestRescheduleTagAdvancesDeadline(t *testing.T) {
	w := newTestWorker([]Tag{{TreePath: "a", ScanMS: 1000}})
	before := w.nextDue["a"]
	w.rescheduleTag(Tag{TreePath: "a", ScanMS: 1000})
	assert.True(t, w.nextDue["a"].After(before))
}

func TestEmitTagCoilDecodesBitFromPayload(t *testing.T) {
	var got []PolledValue
	w := newTestWorker(nil)
	w.onPoll = func(p PolledValue) { got = append(got, p) }

	tag := Tag{TreePath: "coil1", Mapped: mbmap.MappedTag{AddressType: mbmap.Coil, Offset: 2}}
	batch := schedule.Batch{AddressType: mbmap.Coil, Start: 0, Count: 8}
	bits := []bool{false, false, true, false, false, false, false, false}

	w.emitTag(tag, batch, bits, nil)
	require.Len(t, got, 1)
	assert.Equal(t, true, got[0].Value)
	assert.Equal(t, "Good", got[0].Quality)
}

func TestEmitTagCoilOutOfRangeMarksBad(t *testing.T) {
	var got []PolledValue
	w := newTestWorker(nil)
	w.onPoll = func(p PolledValue) { got = append(got, p) }

	tag := Tag{TreePath: "coil1", Mapped: mbmap.MappedTag{AddressType: mbmap.Coil, Offset: 20}}
	batch := schedule.Batch{AddressType: mbmap.Coil, Start: 0, Count: 8}
	bits := []bool{false, false, false, false, false, false, false, false}

	w.emitTag(tag, batch, bits, nil)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Value)
	assert.Equal(t, "Bad", got[0].Quality)
}

func TestEmitTagRegisterAppliesScaling(t *testing.T) {
	var got []PolledValue
	w := newTestWorker(nil)
	w.onPoll = func(p PolledValue) { got = append(got, p) }

	dt, err := mbmap.NormalizeDataType("int16")
	require.NoError(t, err)

	tag := Tag{
		TreePath: "temp",
		Mapped:   mbmap.MappedTag{AddressType: mbmap.HoldingRegister, Offset: 0, RegisterCount: 1, DataType: dt},
		Scaling:  &scaling.Descriptor{Kind: scaling.Linear, RawLow: 0, RawHigh: 1000, ScaledLow: 0, ScaledHigh: 100},
	}
	batch := schedule.Batch{AddressType: mbmap.HoldingRegister, Start: 0, Count: 1}
	payload := []byte{0x01, 0xF4} // 500

	w.emitTag(tag, batch, nil, payload)
	require.Len(t, got, 1)
	assert.InDelta(t, 50.0, got[0].Value.(float64), 0.001)
}

func TestToFloatConversions(t *testing.T) {
	f, ok := toFloat(int16(5))
	require.True(t, ok)
	assert.Equal(t, 5.0, f)

	_, ok = toFloat("not a number")
	assert.False(t, ok)
}

func TestCoilWordEncoding(t *testing.T) {
	assert.Equal(t, uint16(0xFF00), coilWord(true))
	assert.Equal(t, uint16(0x0000), coilWord(false))
}

func TestBaseTypeStripsArraySuffix(t *testing.T) {
	assert.Equal(t, "float32", baseType("float32[]"))
	assert.Equal(t, "int16", baseType("int16"))
}

func TestDeviceKeySplitHelpers(t *testing.T) {
	assert.Equal(t, "Channel1", deviceChannelPart("Channel1_Device1"))
	assert.Equal(t, "Device1", deviceNamePart("Channel1_Device1"))
}

func TestUnpackBitPayloadShortData(t *testing.T) {
	bits := unpackBitPayload([]byte{0x01}, 10)
	assert.True(t, bits[0])
	assert.False(t, bits[1])
}
