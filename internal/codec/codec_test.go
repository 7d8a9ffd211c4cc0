package codec_test

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/codec"
)

func TestUintRoundTrip(t *testing.T) {
	samples := []uint64{0, 1, 0xFA, 0xFB, 0xFC, 255, 256, 65535, 65536,
		1 << 20, 1 << 32, codec.MaxUint}
	for _, v := range samples {
		buf, err := codec.EncodeUint(nil, v)
		require.NoError(t, err)
		got, n, err := codec.DecodeUint(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, len(buf), codec.UintLen(v))
	}
}

func TestUintOutOfRange(t *testing.T) {
	_, err := codec.EncodeUint(nil, codec.MaxUint+1)
	assert.Error(t, err)
}

func TestUintRejectsReservedMarker(t *testing.T) {
	_, _, err := codec.DecodeUint([]byte{0xFF})
	assert.Error(t, err)
}

func TestUintOrderPreserving(t *testing.T) {
	values := []uint64{0, 5, 250, 251, 300, 70000, 1 << 30, codec.MaxUint}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		buf, err := codec.EncodeUint(nil, v)
		require.NoError(t, err)
		encoded[i] = buf
	}
	for i := 1; i < len(values); i++ {
		assert.Truef(t, bytes.Compare(encoded[i-1], encoded[i]) < 0,
			"encode(%d) should sort before encode(%d)", values[i-1], values[i])
	}
}

func TestIntRoundTripAndOrder(t *testing.T) {
	values := []int64{math.MinInt64, -1 << 40, -1000, -1, 0, 1, 1000, 1 << 40, math.MaxInt64}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = codec.EncodeInt(nil, v)
		got, n, err := codec.DecodeInt(encoded[i])
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, 8, n)
	}
	for i := 1; i < len(values); i++ {
		assert.Truef(t, bytes.Compare(encoded[i-1], encoded[i]) < 0,
			"encode(%d) should sort before encode(%d)", values[i-1], values[i])
	}
}

func TestFloatRoundTripAndOrder(t *testing.T) {
	values := []float64{math.Inf(-1), -1e300, -1.5, -0.0, 0.0, 1.5, 1e300, math.Inf(1)}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = codec.EncodeFloat64(nil, v)
		got, n, err := codec.DecodeFloat64(encoded[i])
		require.NoError(t, err)
		if math.IsInf(v, 0) {
			assert.Equal(t, v, got)
		} else {
			assert.InDelta(t, v, got, 1e-9*math.Max(1, math.Abs(v)))
		}
		assert.Equal(t, 8, n)
	}
	for i := 1; i < len(values); i++ {
		// -0.0 and 0.0 encode equal, not strictly increasing; everything
		// else must be strictly increasing.
		if values[i-1] == 0 && values[i] == 0 {
			continue
		}
		assert.Truef(t, bytes.Compare(encoded[i-1], encoded[i]) < 0,
			"encode(%v) should sort before encode(%v)", values[i-1], values[i])
	}
}

func TestStringRoundTrip(t *testing.T) {
	samples := []string{"", "a", "hello world", "with\x00embedded\x00nul", "utf8: héllo 世界"}
	for _, s := range samples {
		buf := codec.EncodeString(nil, s)
		got, n, err := codec.DecodeString(buf)
		require.NoError(t, err)
		assert.Equal(t, s, got)
		assert.Equal(t, len(buf), n)
	}
}

func TestStringOrderPreserving(t *testing.T) {
	values := []string{"", "a", "aa", "ab", "b", "ba"}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = codec.EncodeString(nil, v)
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return bytes.Compare(encoded[idx[i]], encoded[idx[j]]) < 0
	})
	for i, v := range idx {
		assert.Equal(t, i, v, "encoded order should match natural string order: %v", values)
	}
}

func TestStringDecodeRejectsMissingTerminator(t *testing.T) {
	_, _, err := codec.DecodeString([]byte("no terminator"))
	assert.Error(t, err)
}

func TestBoolRoundTripAndOrder(t *testing.T) {
	f := codec.EncodeBool(nil, false)
	tr := codec.EncodeBool(nil, true)
	assert.True(t, bytes.Compare(f, tr) < 0)

	got, n, err := codec.DecodeBool(f)
	require.NoError(t, err)
	assert.False(t, got)
	assert.Equal(t, 1, n)
}

func TestNullSentinelSortsFirst(t *testing.T) {
	nullBuf := codec.EncodeNullPrefix(nil)
	valBuf := codec.EncodeValuePrefix(nil)
	valBuf = codec.EncodeString(valBuf, "")
	assert.True(t, bytes.Compare(nullBuf, valBuf) < 0)

	isNull, n, err := codec.DecodePresence(nullBuf)
	require.NoError(t, err)
	assert.True(t, isNull)
	assert.Equal(t, 1, n)
}

func TestTupleEncoderIsSelfDelimiting(t *testing.T) {
	a := codec.NewEncoder().String("ada").String("lovelace").Bytes()
	b := codec.NewEncoder().String("ad").String("alovelace").Bytes()
	assert.NotEqual(t, a, b, "concatenation must not blur component boundaries")

	rest := a
	first, n, err := codec.DecodeString(rest)
	require.NoError(t, err)
	assert.Equal(t, "ada", first)
	rest = rest[n:]
	second, _, err := codec.DecodeString(rest)
	require.NoError(t, err)
	assert.Equal(t, "lovelace", second)
}

func TestBytesRoundTrip(t *testing.T) {
	samples := [][]byte{nil, {}, {0x00}, {0xFF, 0x00, 0xFF}, bytes.Repeat([]byte{0xAB}, 300)}
	for _, v := range samples {
		buf := codec.EncodeBytes(nil, v)
		got, n, err := codec.DecodeBytes(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		if len(v) == 0 {
			assert.Empty(t, got)
		} else {
			assert.Equal(t, v, got)
		}
	}
}

func TestBytesConcatenationStaysSelfDelimiting(t *testing.T) {
	buf := codec.EncodeBytes(nil, []byte("ab"))
	buf = codec.EncodeBytes(buf, []byte("cde"))

	first, n, err := codec.DecodeBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), first)
	second, _, err := codec.DecodeBytes(buf[n:])
	require.NoError(t, err)
	assert.Equal(t, []byte("cde"), second)
}
