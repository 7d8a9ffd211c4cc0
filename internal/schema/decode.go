package schema

import (
	"permadb/internal/codec"
	"permadb/internal/dberr"
)

// Decode parses the canonical encoding produced by CanonicalBytes back
// into a Schema value.
func Decode(buf []byte) (*Schema, error) {
	d := &decoder{buf: buf}
	typeCount, err := d.uint()
	if err != nil {
		return nil, err
	}
	types := make([]*ObjType, 0, typeCount)
	for i := uint64(0); i < typeCount; i++ {
		t, err := d.objType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if len(d.buf) != 0 {
		return nil, dberr.New(dberr.InvalidSchema, "", "", "trailing bytes after canonical schema encoding")
	}
	return &Schema{Types: types}, nil
}

// decoder walks a canonical schema encoding left to right.
type decoder struct {
	buf []byte
}

func (d *decoder) uint() (uint64, error) {
	v, n, err := codec.DecodeUint(d.buf)
	if err != nil {
		return 0, dberr.Wrap(dberr.InvalidSchema, "", "", err)
	}
	d.buf = d.buf[n:]
	return v, nil
}

func (d *decoder) str() (string, error) {
	s, n, err := codec.DecodeString(d.buf)
	if err != nil {
		return "", dberr.Wrap(dberr.InvalidSchema, "", "", err)
	}
	d.buf = d.buf[n:]
	return s, nil
}

func (d *decoder) boolean() (bool, error) {
	v, n, err := codec.DecodeBool(d.buf)
	if err != nil {
		return false, dberr.Wrap(dberr.InvalidSchema, "", "", err)
	}
	d.buf = d.buf[n:]
	return v, nil
}

func (d *decoder) objType() (*ObjType, error) {
	storageID, err := d.uint()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	fieldCount, err := d.uint()
	if err != nil {
		return nil, err
	}
	fields := make([]*Field, 0, fieldCount)
	for i := uint64(0); i < fieldCount; i++ {
		f, err := d.field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	idxCount, err := d.uint()
	if err != nil {
		return nil, err
	}
	indexes := make([]*CompositeIndex, 0, idxCount)
	for i := uint64(0); i < idxCount; i++ {
		idxStorageID, err := d.uint()
		if err != nil {
			return nil, err
		}
		idxName, err := d.str()
		if err != nil {
			return nil, err
		}
		unique, err := d.boolean()
		if err != nil {
			return nil, err
		}
		fidCount, err := d.uint()
		if err != nil {
			return nil, err
		}
		fids := make([]uint32, 0, fidCount)
		for j := uint64(0); j < fidCount; j++ {
			fid, err := d.uint()
			if err != nil {
				return nil, err
			}
			fids = append(fids, uint32(fid))
		}
		indexes = append(indexes, &CompositeIndex{
			StorageID: uint32(idxStorageID), Name: idxName, Unique: unique, FieldStorageIDs: fids,
		})
	}
	return &ObjType{StorageID: uint32(storageID), Name: name, Fields: fields, CompositeIndexes: indexes}, nil
}

func (d *decoder) field() (*Field, error) {
	storageID, err := d.uint()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	kindVal, err := d.uint()
	if err != nil {
		return nil, err
	}
	kind := FieldKind(kindVal)

	f := &Field{StorageID: uint32(storageID), Name: name, Kind: kind}
	switch kind {
	case Simple:
		t, enumValues, err := d.simpleShape()
		if err != nil {
			return nil, err
		}
		f.SimpleType, f.EnumValues = t, enumValues
		if f.Indexed, err = d.boolean(); err != nil {
			return nil, err
		}
		if f.Unique, err = d.boolean(); err != nil {
			return nil, err
		}
	case Reference:
		refType, allowDeleted, onDelete, forwardDelete, err := d.referenceShape()
		if err != nil {
			return nil, err
		}
		f.ReferenceType, f.AllowDeleted, f.OnDelete, f.ForwardDelete = refType, allowDeleted, onDelete, forwardDelete
	case Counter:
		// no further shape
	case Set, List:
		sf, err := d.subField()
		if err != nil {
			return nil, err
		}
		f.Element = sf
	case Map:
		key, err := d.subField()
		if err != nil {
			return nil, err
		}
		val, err := d.subField()
		if err != nil {
			return nil, err
		}
		f.Key, f.Value = key, val
	default:
		return nil, dberr.Newf(dberr.InvalidSchema, "", name, "unknown encoded field kind %d", kindVal)
	}
	return f, nil
}

func (d *decoder) subField() (*SubField, error) {
	present, err := d.boolean()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	storageID, err := d.uint()
	if err != nil {
		return nil, err
	}
	kindVal, err := d.uint()
	if err != nil {
		return nil, err
	}
	kind := FieldKind(kindVal)
	sf := &SubField{StorageID: uint32(storageID), Kind: kind}
	switch kind {
	case Simple:
		t, enumValues, err := d.simpleShape()
		if err != nil {
			return nil, err
		}
		sf.SimpleType, sf.EnumValues = t, enumValues
		if sf.Indexed, err = d.boolean(); err != nil {
			return nil, err
		}
	case Reference:
		refType, allowDeleted, onDelete, forwardDelete, err := d.referenceShape()
		if err != nil {
			return nil, err
		}
		sf.ReferenceType, sf.AllowDeleted, sf.OnDelete, sf.ForwardDelete = refType, allowDeleted, onDelete, forwardDelete
		if sf.Indexed, err = d.boolean(); err != nil {
			return nil, err
		}
	default:
		return nil, dberr.Newf(dberr.InvalidSchema, "", "", "unknown encoded sub-field kind %d", kindVal)
	}
	return sf, nil
}

func (d *decoder) simpleShape() (SimpleType, []string, error) {
	tVal, err := d.uint()
	if err != nil {
		return 0, nil, err
	}
	t := SimpleType(tVal)
	if t != TypeEnum {
		return t, nil, nil
	}
	count, err := d.uint()
	if err != nil {
		return 0, nil, err
	}
	values := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := d.str()
		if err != nil {
			return 0, nil, err
		}
		values = append(values, v)
	}
	return t, values, nil
}

func (d *decoder) referenceShape() (refType uint32, allowDeleted bool, onDelete OnDelete, forwardDelete bool, err error) {
	rVal, err := d.uint()
	if err != nil {
		return
	}
	refType = uint32(rVal)
	if allowDeleted, err = d.boolean(); err != nil {
		return
	}
	odVal, err := d.uint()
	if err != nil {
		return
	}
	onDelete = OnDelete(odVal)
	forwardDelete, err = d.boolean()
	return
}
