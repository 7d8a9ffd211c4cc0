package codec

import "fmt"

// EncodeBool appends a single order-preserving byte: false < true.
func EncodeBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// DecodeBool reads one byte from the front of buf.
func DecodeBool(buf []byte) (bool, int, error) {
	if len(buf) == 0 {
		return false, 0, fmt.Errorf("codec: decode bool: empty input")
	}
	switch buf[0] {
	case 0:
		return false, 1, nil
	case 1:
		return true, 1, nil
	default:
		return false, 0, fmt.Errorf("codec: decode bool: invalid byte 0x%02x", buf[0])
	}
}
