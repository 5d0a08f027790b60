package mbmap

import (
	"strings"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

// NormalizedType is the canonical form of a data-type name plus how many
// 16-bit registers one element occupies.
type NormalizedType struct {
	Canonical           string // e.g. "int16", "float32", "bcd"
	RegistersPerElement int
	IsArray             bool
}

// canonicalType maps every variant name a project document may use
// (case-insensitive) to a canonical type and its register width.
var canonicalType = map[string]struct {
	name string
	regs int
}{
	"boolean": {"bool", 1},
	"bool":    {"bool", 1},

	"byte": {"uint8", 1},
	"char": {"uint8", 1},
	"uint8": {"uint8", 1},

	"word":   {"uint16", 1},
	"uint16": {"uint16", 1},
	"short":  {"int16", 1},
	"int16":  {"int16", 1},
	"int":    {"int16", 1},

	"dint":    {"int32", 2},
	"int32":   {"int32", 2},
	"long":    {"int32", 2},
	"dword":   {"uint32", 2},
	"uint32":  {"uint32", 2},
	"float":   {"float32", 2},
	"float32": {"float32", 2},
	"real":    {"float32", 2},

	"double":  {"float64", 4},
	"float64": {"float64", 4},

	"llong":  {"int64", 4},
	"int64":  {"int64", 4},
	"qword":  {"uint64", 4},
	"uint64": {"uint64", 4},

	"bcd":  {"bcd", 1},
	"lbcd": {"lbcd", 2},

	"string": {"string", 6},
}

// NormalizeDataType maps a project data-type name (optionally suffixed
// "(Array)" or containing the word "Array") to its canonical register-width
// form. The element count itself comes from the address's "[N]" suffix
// (see ParseAddress); this only reports the per-element width and whether
// the tag is an array at all.
func NormalizeDataType(name string) (NormalizedType, error) {
	lower := strings.ToLower(strings.TrimSpace(name))

	isArray := false
	if strings.Contains(lower, "array") {
		isArray = true
		lower = strings.ReplaceAll(lower, "(array)", "")
		lower = strings.ReplaceAll(lower, "array", "")
		lower = strings.TrimSpace(lower)
	}

	ct, ok := canonicalType[lower]
	if !ok {
		return NormalizedType{}, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "unknown data type %q", name)
	}

	canonical := ct.name
	if isArray {
		canonical += "[]"
	}

	return NormalizedType{Canonical: canonical, RegistersPerElement: ct.regs, IsArray: isArray}, nil
}

// IsIntegerType reports whether a canonical (non-array) type is an integer
// kind, used by reverse_scaling to decide whether to round.
func IsIntegerType(canonical string) bool {
	switch strings.TrimSuffix(canonical, "[]") {
	case "uint8", "int16", "uint16", "int32", "uint32", "int64", "uint64", "bcd", "lbcd":
		return true
	default:
		return false
	}
}
