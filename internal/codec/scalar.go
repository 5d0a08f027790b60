package codec

import (
	"math"
	"strings"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

// DecodeScalar decodes exactly one element of the given canonical type from
// data. It returns an error when the type is unknown or data is too short
// for the type; the caller (internal/worker) turns that into value=nil,
// quality="Bad" rather than propagating a hard failure.
func DecodeScalar(data []byte, canonical string, enc Encoding) (interface{}, error) {
	base := strings.TrimSuffix(canonical, "[]")
	regsNeeded, err := RegistersForType(base)
	if err != nil {
		return nil, err
	}
	if len(data) < regsNeeded*2 {
		return nil, gatewayerr.Wrap(gatewayerr.ErrDecodeFailed, "need %d bytes for %s, got %d", regsNeeded*2, base, len(data))
	}

	regs := toRegisters(data[:regsNeeded*2], enc)

	switch base {
	case "bool":
		return regs[0] != 0, nil
	case "uint8":
		return uint8(regs[0] & 0xFF), nil
	case "int16":
		return int16(regs[0]), nil
	case "uint16":
		return regs[0], nil
	case "bcd":
		return bcdDigitsToValue(regs[0]), nil
	case "int32":
		return int32(order32(regs[0], regs[1], enc)), nil
	case "uint32":
		return order32(regs[0], regs[1], enc), nil
	case "float32":
		return math.Float32frombits(order32(regs[0], regs[1], enc)), nil
	case "lbcd":
		hi := bcdDigitsToValue(regs[0])
		lo := bcdDigitsToValue(regs[1])
		return uint32(hi)*10000 + uint32(lo), nil
	case "int64":
		if enc.TreatLongsAsDecimals {
			return int64(decimalLanesToUint64([4]uint16{regs[0], regs[1], regs[2], regs[3]})), nil
		}
		return int64(order64([4]uint16{regs[0], regs[1], regs[2], regs[3]}, enc)), nil
	case "uint64":
		if enc.TreatLongsAsDecimals {
			return decimalLanesToUint64([4]uint16{regs[0], regs[1], regs[2], regs[3]}), nil
		}
		return order64([4]uint16{regs[0], regs[1], regs[2], regs[3]}, enc), nil
	case "float64":
		return math.Float64frombits(order64([4]uint16{regs[0], regs[1], regs[2], regs[3]}, enc)), nil
	case "string":
		raw := fromRegistersBackToBytesForString(regs)
		return strings.TrimRight(string(raw), "\x00"), nil
	default:
		return nil, gatewayerr.Wrap(gatewayerr.ErrDecodeFailed, "unsupported canonical type %q", canonical)
	}
}

// fromRegistersBackToBytesForString re-serializes already byte/bit-order
// adjusted registers into a flat byte slice for string decoding.
func fromRegistersBackToBytesForString(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, v := range regs {
		out[i*2] = byte(v >> 8)
		out[i*2+1] = byte(v)
	}
	return out
}

// EncodeScalar is the inverse of DecodeScalar.
func EncodeScalar(value interface{}, canonical string, enc Encoding) ([]byte, error) {
	base := strings.TrimSuffix(canonical, "[]")
	regsNeeded, err := RegistersForType(base)
	if err != nil {
		return nil, err
	}

	regs := make([]uint16, regsNeeded)

	switch base {
	case "bool":
		if toBool(value) {
			regs[0] = 1
		}
	case "uint8":
		regs[0] = uint16(toUint64(value))
	case "int16":
		regs[0] = uint16(int16(toInt64(value)))
	case "uint16":
		regs[0] = uint16(toUint64(value))
	case "bcd":
		regs[0] = valueToBCDDigits(uint16(toUint64(value)))
	case "int32":
		regs[0], regs[1] = split32(uint32(int32(toInt64(value))), enc)
	case "uint32":
		regs[0], regs[1] = split32(uint32(toUint64(value)), enc)
	case "float32":
		regs[0], regs[1] = split32(math.Float32bits(float32(toFloat64(value))), enc)
	case "lbcd":
		v := uint32(toUint64(value))
		regs[0] = valueToBCDDigits(uint16(v / 10000))
		regs[1] = valueToBCDDigits(uint16(v % 10000))
	case "int64":
		if enc.TreatLongsAsDecimals {
			lanes := uint64ToDecimalLanes(uint64(toInt64(value)))
			copy(regs, lanes[:])
		} else {
			lanes := split64(uint64(toInt64(value)), enc)
			copy(regs, lanes[:])
		}
	case "uint64":
		if enc.TreatLongsAsDecimals {
			lanes := uint64ToDecimalLanes(toUint64(value))
			copy(regs, lanes[:])
		} else {
			lanes := split64(toUint64(value), enc)
			copy(regs, lanes[:])
		}
	case "float64":
		lanes := split64(math.Float64bits(toFloat64(value)), enc)
		copy(regs, lanes[:])
	case "string":
		s, _ := value.(string)
		b := make([]byte, regsNeeded*2)
		copy(b, s)
		for i := range regs {
			regs[i] = uint16(b[i*2])<<8 | uint16(b[i*2+1])
		}
		return fromRegisters(regs, enc), nil
	default:
		return nil, gatewayerr.Wrap(gatewayerr.ErrDecodeFailed, "unsupported canonical type %q", canonical)
	}

	return fromRegisters(regs, enc), nil
}

func toBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	default:
		return toFloat64(v) != 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// toInt64 and toUint64 type-assert integer kinds directly rather than
// routing through float64, which only carries 53 bits of exact mantissa —
// values beyond +/-2^53 would otherwise lose precision before ever
// reaching split64/uint64ToDecimalLanes. The float branches exist only for
// genuinely float-typed inputs (e.g. a scaled OPC UA write landing on a
// 64-bit integer tag).
func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case float32:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func toUint64(v interface{}) uint64 {
	switch t := v.(type) {
	case uint64:
		return t
	case uint:
		return uint64(t)
	case uint8:
		return uint64(t)
	case uint16:
		return uint64(t)
	case uint32:
		return uint64(t)
	case int64:
		return uint64(t)
	case int:
		return uint64(int64(t))
	case int8:
		return uint64(int64(t))
	case int16:
		return uint64(int64(t))
	case int32:
		return uint64(int64(t))
	case bool:
		if t {
			return 1
		}
		return 0
	case float32:
		f := float64(t)
		if f < 0 {
			return uint64(int64(f))
		}
		return uint64(f)
	case float64:
		if t < 0 {
			return uint64(int64(t))
		}
		return uint64(t)
	default:
		return 0
	}
}
