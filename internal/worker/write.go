package worker

import (
	"encoding/binary"

	"github.com/edgeflow/modgate/internal/codec"
	"github.com/edgeflow/modgate/internal/gatewayerr"
	"github.com/edgeflow/modgate/internal/writequeue"
)

// executeWrite encodes and transmits one pending write-queue entry,
// selecting the single-point or multi-point client call by function code.
func (w *Worker) executeWrite(e writequeue.Entry) error {
	switch e.FunctionCode {
	case 5:
		on, ok := e.Value.(bool)
		if !ok {
			return gatewayerr.Wrap(gatewayerr.ErrWriteFailed, "fc=5 requires a bool value, got %T", e.Value)
		}
		return w.client.WriteSingle(0x05, e.Address, coilWord(on))

	case 6:
		data, err := codec.EncodeScalar(e.Value, baseType(e.TagInfo.DataType), w.cfg.Encoding)
		if err != nil {
			return err
		}
		if len(data) != 2 {
			return gatewayerr.Wrap(gatewayerr.ErrWriteFailed, "fc=6 requires exactly one register, got %d bytes", len(data))
		}
		return w.client.WriteSingle(0x06, e.Address, binary.BigEndian.Uint16(data))

	case 15:
		on, ok := e.Value.(bool)
		if !ok {
			return gatewayerr.Wrap(gatewayerr.ErrWriteFailed, "fc=15 requires a bool value, got %T", e.Value)
		}
		bits := []bool{on}
		return w.client.WriteMultiple(0x0F, e.Address, 1, packBitsLocal(bits))

	case 16:
		data, err := codec.EncodeScalar(e.Value, baseType(e.TagInfo.DataType), w.cfg.Encoding)
		if err != nil {
			return err
		}
		quantity := len(data) / 2
		return w.client.WriteMultiple(0x10, e.Address, quantity, data)

	default:
		return gatewayerr.Wrap(gatewayerr.ErrWriteFailed, "unsupported write function code %d", e.FunctionCode)
	}
}

func coilWord(on bool) uint16 {
	if on {
		return 0xFF00
	}
	return 0x0000
}

func packBitsLocal(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func baseType(canonical string) string {
	if len(canonical) > 2 && canonical[len(canonical)-2:] == "[]" {
		return canonical[:len(canonical)-2]
	}
	return canonical
}
