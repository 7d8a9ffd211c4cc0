package txn

import (
	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/objid"
	"permadb/internal/schema"
)

// Index namespace derivation. internal/index is agnostic to what a
// "field storage ID" numeric namespace means — it just indexes under
// whatever uint32 key it's given. A Map field needs its Key and Value
// sub-fields indexed independently of each other and of the field's own
// storage ID, so txn derives one synthetic namespace per (field storage
// ID, role) pair: shifting the real storage ID left and tagging the low
// two bits with the role keeps every derived namespace distinct, since
// role is always one of four values. Simple/Reference/Set/List element
// indexing use roleSelf/roleElement; Map splits into roleKey/roleValue.
const (
	roleSelf    uint32 = 0
	roleElement uint32 = schema.SubFieldElement
	roleKey     uint32 = schema.SubFieldKey
	roleValue   uint32 = schema.SubFieldValue
)

func indexNamespace(fieldStorageID uint32, role uint32) uint32 {
	return fieldStorageID<<2 | role
}

// encodeSimple encodes a Go value as a presence-prefixed simple-field
// byte string, per f's SimpleType. A nil value encodes as the null
// sentinel.
func encodeSimple(simpleType schema.SimpleType, enumValues []string, value any) ([]byte, error) {
	if value == nil {
		return codec.EncodeNullPrefix(nil), nil
	}
	buf := codec.EncodeValuePrefix(nil)
	switch simpleType {
	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, dberr.Newf(dberr.InvalidValue, "", "", "expected string, got %T", value)
		}
		return codec.EncodeString(buf, s), nil
	case schema.TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, dberr.Newf(dberr.InvalidValue, "", "", "expected bool, got %T", value)
		}
		return codec.EncodeBool(buf, b), nil
	case schema.TypeInt:
		v, ok := asInt64(value)
		if !ok {
			return nil, dberr.Newf(dberr.InvalidValue, "", "", "expected int, got %T", value)
		}
		return codec.EncodeInt(buf, v), nil
	case schema.TypeFloat:
		f, ok := asFloat64(value)
		if !ok {
			return nil, dberr.Newf(dberr.InvalidValue, "", "", "expected float, got %T", value)
		}
		return codec.EncodeFloat64(buf, f), nil
	case schema.TypeBytes:
		b, ok := value.([]byte)
		if !ok {
			return nil, dberr.Newf(dberr.InvalidValue, "", "", "expected []byte, got %T", value)
		}
		return codec.EncodeBytes(buf, b), nil
	case schema.TypeEnum:
		s, ok := value.(string)
		if !ok {
			return nil, dberr.Newf(dberr.InvalidValue, "", "", "expected string enum value, got %T", value)
		}
		if !enumContains(enumValues, s) {
			return nil, dberr.Newf(dberr.InvalidValue, "", "", "%q is not a member of this enum", s)
		}
		return codec.EncodeString(buf, s), nil
	default:
		return nil, dberr.Newf(dberr.InvalidValue, "", "", "unsupported simple type %s", simpleType)
	}
}

// decodeSimple is encodeSimple's inverse, returning nil for the null
// sentinel.
func decodeSimple(simpleType schema.SimpleType, encoded []byte) (any, error) {
	isNull, n, err := codec.DecodePresence(encoded)
	if err != nil {
		return nil, dberr.Wrap(dberr.InvalidValue, "", "", err)
	}
	if isNull {
		return nil, nil
	}
	rest := encoded[n:]
	switch simpleType {
	case schema.TypeString, schema.TypeEnum:
		s, _, err := codec.DecodeString(rest)
		if err != nil {
			return nil, dberr.Wrap(dberr.InvalidValue, "", "", err)
		}
		return s, nil
	case schema.TypeBool:
		b, _, err := codec.DecodeBool(rest)
		if err != nil {
			return nil, dberr.Wrap(dberr.InvalidValue, "", "", err)
		}
		return b, nil
	case schema.TypeInt:
		v, _, err := codec.DecodeInt(rest)
		if err != nil {
			return nil, dberr.Wrap(dberr.InvalidValue, "", "", err)
		}
		return v, nil
	case schema.TypeFloat:
		f, _, err := codec.DecodeFloat64(rest)
		if err != nil {
			return nil, dberr.Wrap(dberr.InvalidValue, "", "", err)
		}
		return f, nil
	case schema.TypeBytes:
		b, _, err := codec.DecodeBytes(rest)
		if err != nil {
			return nil, dberr.Wrap(dberr.InvalidValue, "", "", err)
		}
		return b, nil
	default:
		return nil, dberr.Newf(dberr.InvalidValue, "", "", "unsupported simple type %s", simpleType)
	}
}

func defaultSimpleValue(simpleType schema.SimpleType) any {
	switch simpleType {
	case schema.TypeString, schema.TypeEnum:
		return ""
	case schema.TypeBool:
		return false
	case schema.TypeInt:
		return int64(0)
	case schema.TypeFloat:
		return float64(0)
	case schema.TypeBytes:
		return []byte{}
	default:
		return nil
	}
}

// encodeReference encodes a reference field value, which is either nil,
// an objid.ObjId, or a schema.UntypedObject wrapping one (the §9 Open
// Question 1 placeholder). refType is the field's declared target type
// storage ID, or 0 for "any registered type".
func (t *Tx) encodeReference(refType uint32, value any) ([]byte, error) {
	if value == nil {
		return codec.EncodeNullPrefix(nil), nil
	}
	var id objid.ObjId
	switch v := value.(type) {
	case objid.ObjId:
		id = v
	case schema.UntypedObject:
		id = v.ID
	default:
		return nil, dberr.Newf(dberr.InvalidValue, "", "", "expected objid.ObjId or schema.UntypedObject, got %T", value)
	}
	if refType != 0 && id.TypeStorageID() != refType {
		return nil, dberr.Newf(dberr.InvalidValue, "", "", "reference target type %d does not match field's declared type %d", id.TypeStorageID(), refType)
	}
	buf := codec.EncodeValuePrefix(nil)
	return objid.Encode(buf, id), nil
}

// decodeReference is encodeReference's inverse. If the target's own type
// storage ID is absent from the bound schema, it returns a
// schema.UntypedObject placeholder instead of a bare ObjId (§9 Open
// Question 1).
func (t *Tx) decodeReference(encoded []byte) (any, error) {
	isNull, n, err := codec.DecodePresence(encoded)
	if err != nil {
		return nil, dberr.Wrap(dberr.InvalidValue, "", "", err)
	}
	if isNull {
		return nil, nil
	}
	id, _, err := objid.Decode(encoded[n:])
	if err != nil {
		return nil, dberr.Wrap(dberr.InvalidValue, "", "", err)
	}
	if t.bound.ObjTypeByStorageID(id.TypeStorageID()) == nil {
		return schema.UntypedObject{ID: id, RawType: id.TypeStorageID()}, nil
	}
	return id, nil
}

// encodeSubFieldValue encodes one Set/List element or Map key/value per
// sf's shape.
func (t *Tx) encodeSubFieldValue(sf *schema.SubField, value any) ([]byte, error) {
	if sf.Kind == schema.Reference {
		return t.encodeReference(sf.ReferenceType, value)
	}
	return encodeSimple(sf.SimpleType, sf.EnumValues, value)
}

func (t *Tx) decodeSubFieldValue(sf *schema.SubField, encoded []byte) (any, error) {
	if sf.Kind == schema.Reference {
		return t.decodeReference(encoded)
	}
	return decodeSimple(sf.SimpleType, encoded)
}

func enumContains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
