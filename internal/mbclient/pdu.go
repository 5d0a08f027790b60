package mbclient

import (
	"github.com/edgeflow/modgate/internal/gatewayerr"
	"github.com/edgeflow/modgate/internal/mbmap"
)

func readFuncCode(t mbmap.AddressType) byte {
	return byte(t.FunctionCodeForRead())
}

func buildReadPDU(fc byte, start, count int) []byte {
	return []byte{
		fc,
		byte(start >> 8), byte(start),
		byte(count >> 8), byte(count),
	}
}

// parseReadResponse extracts the raw register/coil byte payload from a
// read response PDU: [fc, byteCount, data...].
func parseReadResponse(pdu []byte) ([]byte, error) {
	if err := checkException(pdu); err != nil {
		return nil, err
	}
	if len(pdu) < 2 {
		return nil, gatewayerr.Wrap(gatewayerr.ErrReadFailed, "short response PDU")
	}
	byteCount := int(pdu[1])
	if len(pdu) < 2+byteCount {
		return nil, gatewayerr.Wrap(gatewayerr.ErrReadFailed, "response PDU shorter than declared byte count")
	}
	return pdu[2 : 2+byteCount], nil
}

// buildWriteSinglePDU builds fc=5 (coil) or fc=6 (register) requests.
func buildWriteSinglePDU(fc byte, address int, valueWord uint16) []byte {
	return []byte{
		fc,
		byte(address >> 8), byte(address),
		byte(valueWord >> 8), byte(valueWord),
	}
}

// coilValueWord converts a bool into the 0xFF00/0x0000 wire representation
// fc=5 requires.
func coilValueWord(on bool) uint16 {
	if on {
		return 0xFF00
	}
	return 0x0000
}

// buildWriteMultiplePDU builds fc=15 (coils) or fc=16 (registers) requests.
// data is the already-packed payload (packed bits for fc15, big-endian
// register bytes for fc16); quantity is bits for fc15, registers for fc16.
func buildWriteMultiplePDU(fc byte, address, quantity int, data []byte) []byte {
	pdu := []byte{
		fc,
		byte(address >> 8), byte(address),
		byte(quantity >> 8), byte(quantity),
		byte(len(data)),
	}
	return append(pdu, data...)
}

func parseWriteResponse(pdu []byte) error {
	return checkException(pdu)
}

func checkException(pdu []byte) error {
	if len(pdu) == 0 {
		return gatewayerr.Wrap(gatewayerr.ErrReadFailed, "empty response PDU")
	}
	if pdu[0]&0x80 != 0 {
		code := byte(0)
		if len(pdu) > 1 {
			code = pdu[1]
		}
		return gatewayerr.Wrap(gatewayerr.ErrReadFailed, "exception response: function=0x%02x code=0x%02x", pdu[0]&0x7F, code)
	}
	return nil
}

// packBits packs a []bool into the byte-per-8-bits layout fc15 and fc1/2
// responses use (LSB first within each byte).
func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// unpackBits is the inverse of packBits, given an expected bit count.
func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			break
		}
		out[i] = data[byteIdx]&(1<<uint(i%8)) != 0
	}
	return out
}
