// Package scaling applies and reverses the linear and square-root scaling
// functions tags can declare between their raw Modbus value and an
// engineering value.
package scaling

import (
	"math"

	"github.com/edgeflow/modgate/internal/logger"
	"go.uber.org/zap"
)

// Kind enumerates the supported scaling functions.
type Kind string

const (
	None       Kind = "None"
	Linear     Kind = "Linear"
	SquareRoot Kind = "SquareRoot"
)

// Descriptor is the scaling configuration attached to a tag.
type Descriptor struct {
	Kind       Kind
	RawLow     float64
	RawHigh    float64
	ScaledLow  float64
	ScaledHigh float64
	ClampLow   bool
	ClampHigh  bool
	Negate     bool
}

// Apply maps a raw value to its engineering value. kind=None returns r
// unchanged. A zero raw range is treated as a configuration quirk rather
// than a fatal error: it returns the raw value unscaled and logs a warning.
func Apply(r float64, d Descriptor) float64 {
	if d.Kind == None {
		return r
	}

	rawRange := d.RawHigh - d.RawLow
	if rawRange == 0 {
		logger.Get().Warn("scaling raw range is zero; returning raw value unscaled",
			zap.Float64("raw_low", d.RawLow), zap.Float64("raw_high", d.RawHigh))
		return r
	}

	var s float64
	switch d.Kind {
	case Linear:
		s = (r-d.RawLow)*(d.ScaledHigh-d.ScaledLow)/rawRange + d.ScaledLow
	case SquareRoot:
		frac := (r - d.RawLow) / rawRange
		if frac < 0 {
			frac = 0
		}
		s = math.Sqrt(frac)*(d.ScaledHigh-d.ScaledLow) + d.ScaledLow
	default:
		return r
	}

	if d.Negate {
		s = -s
	}
	if d.ClampLow && s < d.ScaledLow {
		s = d.ScaledLow
	}
	if d.ClampHigh && s > d.ScaledHigh {
		s = d.ScaledHigh
	}
	return s
}

// ApplySlice applies Apply element-wise, for array tags.
func ApplySlice(raw []float64, d Descriptor) []float64 {
	out := make([]float64, len(raw))
	for i, r := range raw {
		out[i] = Apply(r, d)
	}
	return out
}

// Reverse is the exact inverse of Apply, used when writing a scaled value
// from OPC UA back to the raw Modbus representation. roundToInt rounds the
// result when the raw data-type is integer-ish.
func Reverse(s float64, d Descriptor, roundToInt bool) float64 {
	if d.Kind == None {
		if roundToInt {
			return math.Round(s)
		}
		return s
	}

	scaledRange := d.ScaledHigh - d.ScaledLow
	if d.RawHigh-d.RawLow == 0 {
		if roundToInt {
			return math.Round(s)
		}
		return s
	}

	v := s
	if d.Negate {
		v = -v
	}

	var r float64
	switch d.Kind {
	case Linear:
		r = (v-d.ScaledLow)*(d.RawHigh-d.RawLow)/scaledRange + d.RawLow
	case SquareRoot:
		frac := (v - d.ScaledLow) / scaledRange
		r = frac*frac*(d.RawHigh-d.RawLow) + d.RawLow
	default:
		r = v
	}

	if roundToInt {
		r = math.Round(r)
	}
	return r
}
