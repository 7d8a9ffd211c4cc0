package codec

import "fmt"

// EncodeBytes appends a length-prefixed raw byte string: an order-preserving
// uint length followed by the bytes themselves. Unlike EncodeString this
// performs no escaping, since the explicit length (not a terminator) marks
// the end — but that also means two byte strings where one is a prefix of
// the other do NOT compare as plain byte slices would; callers that need
// lexicographic byte-string order should not rely on this for index keys of
// TypeBytes fields beyond equality/point lookups.
func EncodeBytes(buf []byte, v []byte) []byte {
	buf, err := EncodeUint(buf, uint64(len(v)))
	if err != nil {
		panic(err)
	}
	return append(buf, v...)
}

// DecodeBytes reads a length-prefixed byte string from the front of buf.
func DecodeBytes(buf []byte) ([]byte, int, error) {
	n, consumed, err := DecodeUint(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: decode bytes: %w", err)
	}
	total := consumed + int(n)
	if len(buf) < total {
		return nil, 0, fmt.Errorf("codec: decode bytes: need %d bytes, have %d", total, len(buf))
	}
	out := append([]byte(nil), buf[consumed:total]...)
	return out, total, nil
}
