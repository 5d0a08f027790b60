// Package mbmap parses 6-digit Modbus addresses and normalizes data-type
// names into the canonical form the rest of the runtime works with.
package mbmap

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

// AddressType is one of the four Modbus address spaces.
type AddressType string

const (
	Coil            AddressType = "coil"
	DiscreteInput   AddressType = "discrete-input"
	HoldingRegister AddressType = "holding-register"
	InputRegister   AddressType = "input-register"
)

// FunctionCodeForRead returns the read function code (1-4) for an address type.
func (t AddressType) FunctionCodeForRead() int {
	switch t {
	case Coil:
		return 1
	case DiscreteInput:
		return 2
	case InputRegister:
		return 4
	default: // HoldingRegister
		return 3
	}
}

// ParsedAddress is the result of parse_address: type, zero-based offset
// within that address space, and any array length from a "[N]" suffix.
type ParsedAddress struct {
	Type        AddressType
	Offset      int
	ArrayLength int // 1 when the tag is scalar
	Raw         string
}

var (
	arraySuffixRe = regexp.MustCompile(`\[\s*(\d+)\s*\]\s*$`)
	digitsRe      = regexp.MustCompile(`\d+`)
	colonPrefixRe = regexp.MustCompile(`^\s*([0-4])\s*:\s*(.+)$`)
)

// colonPrefixMap mirrors the pymodbus-style "4:400001" shorthand.
var colonPrefixMap = map[string]AddressType{
	"0": Coil,
	"1": DiscreteInput,
	"3": InputRegister,
	"4": HoldingRegister,
}

type wordPrefix struct {
	prefixes []string
	typ      AddressType
}

// wordPrefixes lists the permissive named-prefix address forms (coil:/
// discrete:/holding:/input: and their short aliases), accepted in addition
// to the bare 6-digit form.
var wordPrefixes = []wordPrefix{
	{[]string{"coil", "co", "c:"}, Coil},
	{[]string{"discrete", "di"}, DiscreteInput},
	{[]string{"holding", "hr", "h:"}, HoldingRegister},
	{[]string{"input", "ir"}, InputRegister},
}

// addressRange describes one of the four 6-digit address spaces.
type addressRange struct {
	typ      AddressType
	base     int
	lo, hi   int
}

// Coil's documented range (000001-009999) is extended to 065536 to match
// the boundary case called out explicitly ("address 065536 is a
// coil") — the other three spaces already span a full x65536.
var addressRanges = []addressRange{
	{Coil, 0, 1, 65536},
	{DiscreteInput, 100000, 100001, 165536},
	{InputRegister, 300000, 300001, 365536},
	{HoldingRegister, 400000, 400001, 465536},
}

// ParseAddress parses a raw address string into an address-type and
// zero-based offset. zeroBasedReg applies the extra -1 adjustment for
// register spaces (holding/input); zeroBasedBit applies it for bit spaces
// (coil/discrete). Accepts bare numbers, "4:400001" colon-prefixed forms,
// "holding:"/"hr:"/"coil:"/etc word-prefixed forms, and an optional "[N]"
// array-length suffix on any of them.
func ParseAddress(raw string, zeroBasedReg, zeroBasedBit bool) (ParsedAddress, error) {
	trimmed := strings.TrimSpace(raw)

	arrayLen := 1
	rest := trimmed
	if m := arraySuffixRe.FindStringSubmatch(trimmed); m != nil {
		n, _ := strconv.Atoi(m[1])
		arrayLen = n
		rest = strings.TrimSpace(trimmed[:len(trimmed)-len(m[0])])
	}

	if !digitsRe.MatchString(rest) {
		return ParsedAddress{}, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "invalid address %q: no digits present", raw)
	}

	var typ AddressType
	var num int

	if m := colonPrefixRe.FindStringSubmatch(rest); m != nil {
		typ = colonPrefixMap[m[1]]
		n, err := strconv.Atoi(digitsRe.FindString(m[2]))
		if err != nil {
			return ParsedAddress{}, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "invalid address %q: no digits present", raw)
		}
		num = n
	} else if wp, numStr, ok := matchWordPrefix(rest); ok {
		typ = wp
		n, err := strconv.Atoi(digitsRe.FindString(numStr))
		if err != nil {
			return ParsedAddress{}, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "invalid address %q: no digits present", raw)
		}
		num = n
	} else {
		n, err := strconv.Atoi(digitsRe.FindString(rest))
		if err != nil {
			return ParsedAddress{}, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "invalid address %q: no digits present", raw)
		}
		num = n
		typ = addressTypeFromRange(num)
	}

	offset := computeOffset(typ, num, zeroBasedReg, zeroBasedBit)

	return ParsedAddress{Type: typ, Offset: offset, ArrayLength: arrayLen, Raw: raw}, nil
}

func matchWordPrefix(rest string) (AddressType, string, bool) {
	lower := strings.ToLower(rest)
	for _, wp := range wordPrefixes {
		for _, p := range wp.prefixes {
			if strings.HasPrefix(lower, p) {
				numStr := strings.TrimSpace(rest[len(p):])
				numStr = strings.TrimPrefix(numStr, ":")
				return wp.typ, numStr, true
			}
		}
	}
	return "", "", false
}

// addressTypeFromRange classifies a bare numeric address per the
// table, falling back permissively to holding-register offset 0 for
// anything outside the known ranges (preserves legacy behaviour instead of
// erroring).
func addressTypeFromRange(num int) AddressType {
	if num == 0 {
		return Coil
	}
	for _, r := range addressRanges {
		if num >= r.lo && num <= r.hi {
			return r.typ
		}
	}
	return HoldingRegister
}

// computeOffset turns a raw address number into a zero-based offset within
// its address space. A number that falls outside its type's documented
// 6-digit range — whether reached via the permissive bare-number fallback
// or an explicit type prefix — always offsets to 0 regardless of the
// zero-based flags, matching original_source's parse_address.
func computeOffset(typ AddressType, num int, zeroBasedReg, zeroBasedBit bool) int {
	if num == 0 {
		return 0
	}

	var base int
	inRange := false
	for _, r := range addressRanges {
		if r.typ == typ {
			base = r.base
			inRange = num >= r.lo && num <= r.hi
			break
		}
	}

	var naive int
	if inRange {
		naive = num - base
	} else {
		// Both the permissive bare-number fallback and an explicit prefix
		// form carrying a number outside the type's 6-digit range resolve
		// to offset 0, matching original_source's parse_address.
		naive = 0
	}

	return applyZeroBased(typ, naive, zeroBasedReg, zeroBasedBit)
}

func applyZeroBased(typ AddressType, offset int, zeroBasedReg, zeroBasedBit bool) int {
	switch typ {
	case Coil, DiscreteInput:
		if zeroBasedBit && offset > 0 {
			return offset - 1
		}
	default:
		if zeroBasedReg && offset > 0 {
			return offset - 1
		}
	}
	return offset
}
