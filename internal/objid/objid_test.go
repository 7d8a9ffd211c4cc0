package objid_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/objid"
)

func TestNewPreservesTypeStorageID(t *testing.T) {
	id, err := objid.New(42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), id.TypeStorageID())
	assert.False(t, id.IsZero())
}

func TestNewRejectsOutOfRangeStorageID(t *testing.T) {
	_, err := objid.New(0)
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id, err := objid.New(7)
	require.NoError(t, err)
	buf := objid.Encode(nil, id)
	assert.Equal(t, objid.EncodedLen, len(buf))
	got, n, err := objid.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, objid.EncodedLen, n)
}

func TestEncodeOrderMatchesTypeStorageIDFirst(t *testing.T) {
	a, err := objid.New(1)
	require.NoError(t, err)
	b, err := objid.New(2)
	require.NoError(t, err)
	assert.True(t, bytes.Compare(objid.Encode(nil, a), objid.Encode(nil, b)) < 0,
		"objects of a lower type storage ID should sort before a higher one")
}

func TestTwoNewIDsDiffer(t *testing.T) {
	a, err := objid.New(5)
	require.NoError(t, err)
	b, err := objid.New(5)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseStringRoundTrip(t *testing.T) {
	id, err := objid.New(9)
	require.NoError(t, err)
	got, err := objid.ParseString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseStringRejectsGarbage(t *testing.T) {
	_, err := objid.ParseString("not-hex")
	assert.Error(t, err)
}
