package migrate

import (
	"fmt"
	"math"

	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/schema"
)

// ConvertSimpleValue re-encodes a bare (presence-prefix-stripped) simple
// field value from oldType's encoding to newType's, for the field/value
// pairs PolicyAttempt and PolicyRequire can actually handle. lossy
// reports whether the conversion could discard information (e.g. float
// to int truncation, an int a float64 cannot hold exactly, or an int
// other than 0 or 1 converted to bool); callers applying PolicyRequire should treat lossy==true as a
// failure.
func ConvertSimpleValue(oldType, newType schema.SimpleType, encoded []byte) (converted []byte, lossy bool, err error) {
	if oldType == newType {
		return encoded, false, nil
	}
	switch {
	case oldType == schema.TypeString && newType == schema.TypeBytes:
		s, _, err := codec.DecodeString(encoded)
		if err != nil {
			return nil, false, err
		}
		return codec.EncodeBytes(nil, []byte(s)), false, nil
	case oldType == schema.TypeBytes && newType == schema.TypeString:
		b, _, err := codec.DecodeBytes(encoded)
		if err != nil {
			return nil, false, err
		}
		return codec.EncodeString(nil, string(b)), false, nil
	case oldType == schema.TypeEnum && newType == schema.TypeString:
		s, _, err := codec.DecodeString(encoded)
		if err != nil {
			return nil, false, err
		}
		return codec.EncodeString(nil, s), false, nil
	case oldType == schema.TypeString && newType == schema.TypeEnum:
		// Legal only if the decoded value happens to name one of the
		// new enum's members; the caller (which owns the target
		// field's EnumValues) must reject it otherwise. Here we just
		// pass the string through unchanged.
		s, _, err := codec.DecodeString(encoded)
		if err != nil {
			return nil, false, err
		}
		return codec.EncodeString(nil, s), false, nil
	case oldType == schema.TypeInt && newType == schema.TypeFloat:
		v, _, err := codec.DecodeInt(encoded)
		if err != nil {
			return nil, false, err
		}
		f := float64(v)
		return codec.EncodeFloat64(nil, f), int64(f) != v, nil
	case oldType == schema.TypeFloat && newType == schema.TypeInt:
		f, _, err := codec.DecodeFloat64(encoded)
		if err != nil {
			return nil, false, err
		}
		v := int64(f)
		return codec.EncodeInt(nil, v), f != math.Trunc(f) || f != float64(v), nil
	case oldType == schema.TypeBool && newType == schema.TypeInt:
		b, _, err := codec.DecodeBool(encoded)
		if err != nil {
			return nil, false, err
		}
		var v int64
		if b {
			v = 1
		}
		return codec.EncodeInt(nil, v), false, nil
	case oldType == schema.TypeInt && newType == schema.TypeBool:
		v, _, err := codec.DecodeInt(encoded)
		if err != nil {
			return nil, false, err
		}
		return codec.EncodeBool(nil, v != 0), v != 0 && v != 1, nil
	default:
		return nil, true, fmt.Errorf("migrate: no conversion from %s to %s", oldType, newType)
	}
}

// ApplyPolicy runs ConvertSimpleValue for PolicyAttempt/PolicyRequire and
// folds the policy's fallback rule in: Attempt falls back to the newType
// zero value on any error or lossy conversion, Require surfaces a
// SchemaMismatch error instead.
func ApplyPolicy(policy ConversionPolicy, oldType, newType schema.SimpleType, encoded []byte, zeroValue []byte, fieldName string) ([]byte, error) {
	converted, lossy, err := ConvertSimpleValue(oldType, newType, encoded)
	switch policy {
	case PolicyRequire:
		if err != nil {
			return nil, dberr.Wrap(dberr.SchemaMismatch, "", "", err).WithField(fieldName)
		}
		if lossy {
			return nil, dberr.Newf(dberr.SchemaMismatch, "", "", "field %q: conversion from %s to %s would lose data", fieldName, oldType, newType).WithField(fieldName)
		}
		return converted, nil
	case PolicyAttempt:
		if err != nil || lossy {
			return zeroValue, nil
		}
		return converted, nil
	default:
		return zeroValue, nil
	}
}
