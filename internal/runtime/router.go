package runtime

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/mbmap"
	"github.com/edgeflow/modgate/internal/scaling"
	"github.com/edgeflow/modgate/internal/writequeue"
)

// WriteRouter is the function signature the OPC UA bridge calls when a
// client writes a node: (channel, device, tag, value, elementIndex) ->
// accepted? elementIndex is -1 for a scalar tag or a whole-array write
// (value is the full array), and >= 0 when the write targets a single
// array element (value is that element's scalar value).
type WriteRouter func(channel, device, tag string, value interface{}, elementIndex int) bool

// Router returns a WriteRouter bound to this monitor's live device units.
// It resolves the owning worker, reverses any configured scaling so the
// raw value is what gets queued, and enqueues using the tag's precomputed
// write function-code. For array tags the write address is adjusted by
// index*registers-per-element per spec §4.11 step 3.
func (m *Monitor) Router() WriteRouter {
	return func(channel, device, tag string, value interface{}, elementIndex int) bool {
		key := channel + "_" + device
		unit, ok := m.units[key]
		if !ok {
			return false
		}
		rt, ok := unit.tags[tag]
		if !ok || rt.access == "RO" {
			return false
		}
		if rt.mapped.WriteFunctionCode == 0 {
			return false
		}

		if rt.mapped.DataType.IsArray {
			if elementIndex >= 0 {
				return m.enqueueArrayElementWrite(unit, key, tag, rt, elementIndex, value)
			}
			return m.enqueueArrayWrite(unit, key, tag, rt, value)
		}

		raw := value
		if rt.scaling != nil {
			if f, ok := toFloat(value); ok {
				roundToInt := mbmap.IsIntegerType(rt.dataType)
				raw = scaling.Reverse(f, *rt.scaling, roundToInt)
			}
		}

		err := unit.queue.Enqueue(
			rt.mapped.Offset,
			rt.mapped.WriteFunctionCode,
			raw,
			writequeue.TagInfo{TreePath: tag, DataType: rt.dataType},
			time.Now().UnixNano(),
		)
		if err != nil {
			m.log.Warn("write-router enqueue failed", zap.String("device", key), zap.String("tag", tag), zap.Error(err))
			return false
		}
		return true
	}
}

// enqueueArrayElementWrite queues a write for one element of an array tag,
// resolved from a node identifier that carried an explicit "[i]" suffix.
// The address is the tag's base offset plus index*registers-per-element.
func (m *Monitor) enqueueArrayElementWrite(unit *deviceUnit, key, tag string, rt resolvedTag, index int, value interface{}) bool {
	if index < 0 || index >= rt.mapped.ArrayElementCount {
		m.log.Warn("write-router: array index out of range", zap.String("device", key), zap.String("tag", tag), zap.Int("index", index))
		return false
	}
	elementType := strings.TrimSuffix(rt.dataType, "[]")

	raw := value
	if rt.scaling != nil {
		if f, ok := toFloat(value); ok {
			roundToInt := mbmap.IsIntegerType(elementType)
			raw = scaling.Reverse(f, *rt.scaling, roundToInt)
		}
	}

	addr := rt.mapped.Offset + index*rt.mapped.DataType.RegistersPerElement
	err := unit.queue.Enqueue(
		addr,
		rt.mapped.WriteFunctionCode,
		raw,
		writequeue.TagInfo{TreePath: fmt.Sprintf("%s [%d]", tag, index), DataType: elementType},
		time.Now().UnixNano(),
	)
	if err != nil {
		m.log.Warn("write-router enqueue failed", zap.String("device", key), zap.String("tag", tag), zap.Int("index", index), zap.Error(err))
		return false
	}
	return true
}

// enqueueArrayWrite decomposes a whole-array client write (the OPC UA
// aggregate node's full Value attribute) into one queued write per
// element, each addressed at base-offset + i*registers-per-element, per
// spec §4.11 step 3. At least one element must enqueue successfully for
// the write to be reported as accepted.
func (m *Monitor) enqueueArrayWrite(unit *deviceUnit, key, tag string, rt resolvedTag, value interface{}) bool {
	elems, ok := toSlice(value)
	if !ok {
		m.log.Warn("write-router: array tag write value is not a slice", zap.String("device", key), zap.String("tag", tag))
		return false
	}

	accepted := false
	for i, elemVal := range elems {
		if i >= rt.mapped.ArrayElementCount {
			break
		}
		if m.enqueueArrayElementWrite(unit, key, tag, rt, i, elemVal) {
			accepted = true
		}
	}
	return accepted
}

// toSlice reflects v into a []interface{} regardless of its concrete
// element type (the OPC UA library may hand back a typed slice such as
// []float32 rather than []interface{}).
func toSlice(v interface{}) ([]interface{}, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
