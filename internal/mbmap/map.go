package mbmap

import (
	"strings"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

// MappedTag is the canonical mapped tag minus the runtime
// bookkeeping (tree-path, scaling, scan interval) that internal/runtime
// attaches once it has the owning Device and Channel in hand.
type MappedTag struct {
	AddressType       AddressType
	Offset            int
	RegisterCount     int
	DataType          NormalizedType
	ArrayElementCount int
	WriteFunctionCode int // 0 if the address type cannot be written
	RawAddressString  string
}

// MapTag parses a raw address and data-type name and assembles the
// canonical mapped tag, including the write function code chosen by
// WriteFunctionCode. func05/func06 are the device's data-access flags.
func MapTag(rawAddress, dataType string, zeroBasedReg, zeroBasedBit, func05, func06 bool) (MappedTag, error) {
	addr, err := ParseAddress(rawAddress, zeroBasedReg, zeroBasedBit)
	if err != nil {
		return MappedTag{}, err
	}
	dt, err := NormalizeDataType(dataType)
	if err != nil {
		return MappedTag{}, err
	}

	arrayLen := 1
	if dt.IsArray {
		arrayLen = addr.ArrayLength
		if arrayLen == 0 {
			return MappedTag{}, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "tag at %q: array length 0 is not allowed", rawAddress)
		}
	}

	fc, _ := WriteFunctionCode(addr.Type, dt.Canonical, func05, func06)

	return MappedTag{
		AddressType:       addr.Type,
		Offset:            addr.Offset,
		RegisterCount:     dt.RegistersPerElement * arrayLen,
		DataType:          dt,
		ArrayElementCount: arrayLen,
		WriteFunctionCode: fc,
		RawAddressString:  rawAddress,
	}, nil
}

// WriteFunctionCode selects the Modbus write function code for a tag.
// Coils use 5/15 depending on func05; holding registers use 6
// when enabled and the type fits in one register, else 16 (multi-register
// types always force 16 regardless of func06). Other address types cannot
// be written.
func WriteFunctionCode(addrType AddressType, canonical string, func05, func06 bool) (int, error) {
	switch addrType {
	case Coil:
		if func05 {
			return 5, nil
		}
		return 15, nil
	case HoldingRegister:
		regs := 1
		if ct, ok := canonicalType[strings.TrimSuffix(canonical, "[]")]; ok {
			regs = ct.regs
		}
		if regs > 1 {
			return 16, nil
		}
		if func06 {
			return 6, nil
		}
		return 16, nil
	default:
		return 0, gatewayerr.Wrap(gatewayerr.ErrWritePermissionDenied, "address type %q is not writable", addrType)
	}
}
