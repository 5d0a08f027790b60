package scaling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyLinear(t *testing.T) {
	d := Descriptor{Kind: Linear, RawLow: 0, RawHigh: 1000, ScaledLow: 0, ScaledHigh: 100}
	assert.InDelta(t, 50.0, Apply(500, d), 1e-9)
}

func TestApplyNoneReturnsRawUnchanged(t *testing.T) {
	assert.Equal(t, 42.0, Apply(42, Descriptor{Kind: None}))
}

func TestApplyZeroRawRangeReturnsRaw(t *testing.T) {
	d := Descriptor{Kind: Linear, RawLow: 10, RawHigh: 10, ScaledLow: 0, ScaledHigh: 100}
	assert.Equal(t, 7.0, Apply(7, d))
}

func TestApplySquareRoot(t *testing.T) {
	d := Descriptor{Kind: SquareRoot, RawLow: 0, RawHigh: 100, ScaledLow: 0, ScaledHigh: 10}
	assert.InDelta(t, 10.0, Apply(100, d), 1e-9)
	assert.InDelta(t, 0.0, Apply(0, d), 1e-9)
}

func TestApplyClampAndNegate(t *testing.T) {
	d := Descriptor{Kind: Linear, RawLow: 0, RawHigh: 1000, ScaledLow: 0, ScaledHigh: 100, ClampHigh: true, Negate: true}
	// raw=2000 -> linear scale would be 200, negated -> -200, clamp-high doesn't bound below
	// so check a positive overshoot instead.
	d2 := Descriptor{Kind: Linear, RawLow: 0, RawHigh: 1000, ScaledLow: 0, ScaledHigh: 100, ClampHigh: true}
	assert.Equal(t, 100.0, Apply(2000, d2))

	assert.Equal(t, -50.0, Apply(500, d))
}

func TestReverseScalingIsExactInverse(t *testing.T) {
	d := Descriptor{Kind: Linear, RawLow: 0, RawHigh: 1000, ScaledLow: 0, ScaledHigh: 100}
	for r := 0.0; r <= 1000; r += 37 {
		s := Apply(r, d)
		back := Reverse(s, d, false)
		assert.InDelta(t, r, back, 1e-6)
	}
}

func TestReverseScalingSquareRootInverse(t *testing.T) {
	d := Descriptor{Kind: SquareRoot, RawLow: 0, RawHigh: 1000, ScaledLow: 0, ScaledHigh: 100}
	for r := 0.0; r <= 1000; r += 53 {
		s := Apply(r, d)
		back := Reverse(s, d, false)
		assert.InDelta(t, r, back, 1e-6)
	}
}

func TestReverseRoundsForIntegerRawType(t *testing.T) {
	d := Descriptor{Kind: Linear, RawLow: 0, RawHigh: 1000, ScaledLow: 0, ScaledHigh: 100}
	back := Reverse(12.5, d, true)
	assert.Equal(t, math.Round(back), back)
}
