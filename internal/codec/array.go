package codec

import "strings"

// DecodeArray slices data into count elements of regsPerElement registers
// each and decodes them independently. An element whose bytes run past the
// end of data is reported with OK=false rather than aborting the whole
// array (the result is null for that element, not an exception).
func DecodeArray(data []byte, canonical string, count int, enc Encoding) ([]DecodedElement, error) {
	base := strings.TrimSuffix(canonical, "[]")
	regsPerElement, err := RegistersForType(base)
	if err != nil {
		return nil, err
	}
	elemBytes := regsPerElement * 2

	out := make([]DecodedElement, count)
	for i := 0; i < count; i++ {
		start := i * elemBytes
		end := start + elemBytes
		if end > len(data) {
			out[i] = DecodedElement{Value: nil, OK: false}
			continue
		}
		v, err := DecodeScalar(data[start:end], base, enc)
		if err != nil {
			out[i] = DecodedElement{Value: nil, OK: false}
			continue
		}
		out[i] = DecodedElement{Value: v, OK: true}
	}
	return out, nil
}

// EncodeArray is the inverse of DecodeArray: every element must encode
// successfully, since a write cannot partially transmit.
func EncodeArray(values []interface{}, canonical string, enc Encoding) ([]byte, error) {
	base := strings.TrimSuffix(canonical, "[]")
	var out []byte
	for _, v := range values {
		b, err := EncodeScalar(v, base, enc)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}
