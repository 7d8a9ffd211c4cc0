package migrate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/migrate"
	"permadb/internal/schema"
)

func TestConvertSimpleValueIntToFloatIsLossless(t *testing.T) {
	encoded := codec.EncodeInt(nil, 1234)
	got, lossy, err := migrate.ConvertSimpleValue(schema.TypeInt, schema.TypeFloat, encoded)
	require.NoError(t, err)
	assert.False(t, lossy)
	f, _, err := codec.DecodeFloat64(got)
	require.NoError(t, err)
	assert.Equal(t, float64(1234), f)
}

func TestConvertSimpleValueStringBytesRoundTrip(t *testing.T) {
	encoded := codec.EncodeString(nil, "hello")
	got, lossy, err := migrate.ConvertSimpleValue(schema.TypeString, schema.TypeBytes, encoded)
	require.NoError(t, err)
	assert.False(t, lossy)
	b, _, err := codec.DecodeBytes(got)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)
}

func TestConvertSimpleValueUnsupportedPairErrors(t *testing.T) {
	encoded := codec.EncodeBool(nil, true)
	_, _, err := migrate.ConvertSimpleValue(schema.TypeBool, schema.TypeBytes, encoded)
	assert.Error(t, err)
}

func TestApplyPolicyRequireFailsOnLossyConversion(t *testing.T) {
	encoded := codec.EncodeFloat64(nil, 12.5)
	_, err := migrate.ApplyPolicy(migrate.PolicyRequire, schema.TypeFloat, schema.TypeInt, encoded, codec.EncodeInt(nil, 0), "balance")
	require.Error(t, err)
	var dbe *dberr.Error
	require.ErrorAs(t, err, &dbe)
	assert.Equal(t, dberr.SchemaMismatch, dbe.Kind)
}

func TestApplyPolicyAttemptFallsBackToZeroOnLossyConversion(t *testing.T) {
	encoded := codec.EncodeFloat64(nil, 12.5)
	zero := codec.EncodeInt(nil, 0)
	got, err := migrate.ApplyPolicy(migrate.PolicyAttempt, schema.TypeFloat, schema.TypeInt, encoded, zero, "balance")
	require.NoError(t, err)
	assert.Equal(t, zero, got)
}

func TestApplyPolicyAttemptSucceedsOnLosslessConversion(t *testing.T) {
	encoded := codec.EncodeInt(nil, 7)
	zero := codec.EncodeFloat64(nil, 0)
	got, err := migrate.ApplyPolicy(migrate.PolicyAttempt, schema.TypeInt, schema.TypeFloat, encoded, zero, "balance")
	require.NoError(t, err)
	f, _, err := codec.DecodeFloat64(got)
	require.NoError(t, err)
	assert.Equal(t, float64(7), f)
}
