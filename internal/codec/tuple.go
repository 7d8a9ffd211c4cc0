package codec

import "fmt"

// Null sentinel: every nullable simple-field encoding is prefixed with a
// presence byte so that null sorts before every non-null value of the same
// type, per the index engine's null-handling rule.
const (
	presenceNull    byte = 0x00
	presenceNonNull byte = 0x01
)

// EncodeNullPrefix appends the presence byte for a null value. Callers
// append nothing further.
func EncodeNullPrefix(buf []byte) []byte {
	return append(buf, presenceNull)
}

// EncodeValuePrefix appends the presence byte for a non-null value. Callers
// must append the value's own encoding immediately after.
func EncodeValuePrefix(buf []byte) []byte {
	return append(buf, presenceNonNull)
}

// DecodePresence reads the presence byte from the front of buf, reporting
// whether the encoded value is null and how many bytes (always 1) were
// consumed.
func DecodePresence(buf []byte) (isNull bool, n int, err error) {
	if len(buf) == 0 {
		return false, 0, fmt.Errorf("codec: decode presence: empty input")
	}
	switch buf[0] {
	case presenceNull:
		return true, 1, nil
	case presenceNonNull:
		return false, 1, nil
	default:
		return false, 0, fmt.Errorf("codec: decode presence: invalid byte 0x%02x", buf[0])
	}
}

// Encoder accumulates a self-delimiting tuple: a concatenation of
// independently-decodable encodings, used for composite-index keys and
// collection map entries. Because every component encoding carries its own
// length (terminators for strings, length-prefixes for uints, fixed widths
// for ints/floats/bools), the concatenation itself needs no extra framing.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty tuple encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated encoding.
func (e *Encoder) Bytes() []byte { return e.buf }

// Uint appends an encoded unsigned integer component.
func (e *Encoder) Uint(v uint64) *Encoder {
	buf, err := EncodeUint(e.buf, v)
	if err != nil {
		// MaxUint is well above any storage ID or index we construct;
		// a failure here means caller-supplied data is out of range.
		panic(err)
	}
	e.buf = buf
	return e
}

// Int appends an encoded signed integer component.
func (e *Encoder) Int(v int64) *Encoder {
	e.buf = EncodeInt(e.buf, v)
	return e
}

// Float64 appends an encoded float component.
func (e *Encoder) Float64(v float64) *Encoder {
	e.buf = EncodeFloat64(e.buf, v)
	return e
}

// String appends an encoded string component.
func (e *Encoder) String(s string) *Encoder {
	e.buf = EncodeString(e.buf, s)
	return e
}

// Bool appends an encoded bool component.
func (e *Encoder) Bool(v bool) *Encoder {
	e.buf = EncodeBool(e.buf, v)
	return e
}

// Raw appends a raw pre-encoded component verbatim (used to splice in an
// already-encoded field value).
func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Concat is a package-level convenience for building a tuple from
// already-encoded components in one call.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
