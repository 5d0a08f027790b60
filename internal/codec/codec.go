// Package codec encodes and decodes scalar and array values across the
// byte/word/dword/bit ordering permutations a Modbus device can use, plus
// the "treat 64-bit longs as packed decimals" mode.
//
// Registers arrive and leave as a flat big-endian byte slice, two bytes per
// register, exactly as they sit on the wire (internal/mbclient does no
// reordering of its own).
package codec

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

// Encoding captures one device's byte/word/dword/bit ordering settings.
type Encoding struct {
	ByteOrderBig         bool // true = big ("Enable", no swap); false = little (swap each register's two bytes)
	WordOrderLowHigh     bool // true = device stores 32-bit words as [low, high]
	DwordOrderLowHigh    bool // true = device stores 64-bit dwords as [low, high]
	BitOrderMSB          bool // true = Modicon bit order (reverse bit positions)
	TreatLongsAsDecimals bool
}

type typeWidth struct {
	regs int
}

var widths = map[string]typeWidth{
	"bool": {1}, "uint8": {1}, "int16": {1}, "uint16": {1}, "bcd": {1},
	"int32": {2}, "uint32": {2}, "float32": {2}, "lbcd": {2},
	"int64": {4}, "uint64": {4}, "float64": {4},
	"string": {6},
}

// RegistersForType returns how many 2-byte registers one element of the
// given canonical (non-array) type occupies.
func RegistersForType(canonical string) (int, error) {
	base := strings.TrimSuffix(canonical, "[]")
	w, ok := widths[base]
	if !ok {
		return 0, gatewayerr.Wrap(gatewayerr.ErrDecodeFailed, "unknown canonical type %q", canonical)
	}
	return w.regs, nil
}

// DecodedElement is one array (or scalar) element's decode result. OK is
// false when the source bytes were too short for this element; per spec
// §4.3 that yields value=nil / quality "Bad" rather than an error.
type DecodedElement struct {
	Value interface{}
	OK    bool
}

// toRegisters splits data into big-endian uint16 registers and applies the
// byte-order and bit-order transforms, which both act per-register and are
// independent of element width.
func toRegisters(data []byte, enc Encoding) []uint16 {
	n := len(data) / 2
	regs := make([]uint16, n)
	for i := 0; i < n; i++ {
		v := binary.BigEndian.Uint16(data[i*2 : i*2+2])
		if !enc.ByteOrderBig {
			v = (v << 8) | (v >> 8)
		}
		if enc.BitOrderMSB {
			v = reverseBits16(v)
		}
		regs[i] = v
	}
	return regs
}

// fromRegisters is the encode-side mirror of toRegisters.
func fromRegisters(regs []uint16, enc Encoding) []byte {
	out := make([]byte, len(regs)*2)
	for i, v := range regs {
		if enc.BitOrderMSB {
			v = reverseBits16(v)
		}
		if !enc.ByteOrderBig {
			v = (v << 8) | (v >> 8)
		}
		binary.BigEndian.PutUint16(out[i*2:i*2+2], v)
	}
	return out
}

func reverseBits16(v uint16) uint16 {
	var r uint16
	for i := 0; i < 16; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

// order32 combines two registers into one big-endian uint32 honoring
// word-order: the device stores [low, high] when WordOrderLowHigh, so that
// pair must be reversed before big-endian interpretation.
func order32(a, b uint16, enc Encoding) uint32 {
	hi, lo := a, b
	if enc.WordOrderLowHigh {
		hi, lo = b, a
	}
	return uint32(hi)<<16 | uint32(lo)
}

func split32(v uint32, enc Encoding) (uint16, uint16) {
	hi := uint16(v >> 16)
	lo := uint16(v)
	if enc.WordOrderLowHigh {
		return lo, hi
	}
	return hi, lo
}

// order64 combines four registers into one big-endian uint64: word-order
// applies within each dword pair, then dword-order across the two dwords.
func order64(r [4]uint16, enc Encoding) uint64 {
	dwordA := order32(r[0], r[1], enc)
	dwordB := order32(r[2], r[3], enc)
	hi, lo := dwordA, dwordB
	if enc.DwordOrderLowHigh {
		hi, lo = dwordB, dwordA
	}
	return uint64(hi)<<32 | uint64(lo)
}

func split64(v uint64, enc Encoding) [4]uint16 {
	hi := uint32(v >> 32)
	lo := uint32(v)
	dwordA, dwordB := hi, lo
	if enc.DwordOrderLowHigh {
		dwordA, dwordB = lo, hi
	}
	a, b := split32(dwordA, enc)
	c, d := split32(dwordB, enc)
	return [4]uint16{a, b, c, d}
}

// decimalLanesToUint64 decodes the "treat longs as decimals" packed layout:
// four 16-bit lanes [0, high-decimal, 0, low-decimal], each decimal in
// 0..9999, value = high*10000 + low.
func decimalLanesToUint64(r [4]uint16) uint64 {
	high := uint64(r[1] % 10000)
	low := uint64(r[3] % 10000)
	return high*10000 + low
}

func uint64ToDecimalLanes(v uint64) [4]uint16 {
	high := (v / 10000) % 10000
	low := v % 10000
	return [4]uint16{0, uint16(high), 0, uint16(low)}
}

func bcdDigitsToValue(v uint16) uint16 {
	var out uint16
	mult := uint16(1)
	for i := 0; i < 4; i++ {
		digit := (v >> (4 * i)) & 0xF
		out += digit * mult
		mult *= 10
	}
	return out
}

func valueToBCDDigits(v uint16) uint16 {
	var out uint16
	for i := 0; i < 4 && v > 0; i++ {
		digit := v % 10
		out |= digit << (4 * i)
		v /= 10
	}
	return out
}
