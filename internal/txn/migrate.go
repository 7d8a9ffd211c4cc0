package txn

import (
	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/keys"
	"permadb/internal/migrate"
	"permadb/internal/objid"
	"permadb/internal/schema"
	"permadb/internal/validate"
)

// MigrateSchema moves id from its current schema version to toVersion,
// converting, resetting, or retaining each field per internal/migrate's
// plan, then rebinds the object's OBJ record to toVersion. Index entries
// of converted or reset fields are refreshed in place; a retained field's
// index entries are left as they are, even when its Indexed flag differs
// between the two versions. Field storage IDs are stable across
// versions, so the KV keys themselves never move.
func (t *Tx) MigrateSchema(id objid.ObjId, toVersion uint64) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	oldType, err := t.requireExists(id)
	if err != nil {
		return err
	}
	fromVersion, err := t.objSchemaVersion(id)
	if err != nil {
		return err
	}
	if fromVersion == toVersion {
		return nil
	}
	if oldSchema, ok, err := t.registry.Get(fromVersion); err != nil {
		return err
	} else if ok {
		if ot := oldSchema.ObjTypeByStorageID(oldType.StorageID); ot != nil {
			oldType = ot
		}
	}

	newSchema, ok, err := t.registry.Get(toVersion)
	if err != nil {
		return err
	}
	if !ok {
		return dberr.Newf(dberr.SchemaMismatch, "", "", "schema version %d is not registered", toVersion)
	}
	newType := newSchema.ObjTypeByStorageID(oldType.StorageID)
	if newType == nil {
		return dberr.Newf(dberr.SchemaMismatch, oldType.Name, "", "type storage id %d does not exist in schema version %d", oldType.StorageID, toVersion)
	}

	plan := migrate.BuildPlan(oldType, newType, t.opts.UpgradeConversionDefault)
	plan.Dedupe()
	if notes := plan.UnresolvedNotes(); len(notes) > 0 {
		return dberr.Newf(dberr.SchemaMismatch, oldType.Name, "", "cannot migrate to version %d: %s", toVersion, notes[0])
	}

	oldCixTuples := make(map[string][]byte, len(oldType.CompositeIndexes))
	for _, cidx := range oldType.CompositeIndexes {
		tuple, err := t.compositeTuple(id, cidx)
		if err != nil {
			return err
		}
		oldCixTuples[cidx.Name] = tuple
	}

	for _, fc := range plan.Operations {
		if fc.Kind == migrate.OperationRetain {
			continue
		}
		newField := newType.FieldByStorageID(fc.FieldStorageID)
		if err := t.migrateField(id, oldType, newField, fc); err != nil {
			return err
		}
	}

	for _, cidx := range newType.CompositeIndexes {
		oldCidx := oldType.CompositeIndex(cidx.Name)
		if oldCidx == nil {
			continue // index is new in this version: nothing to remove
		}
		newTuple, err := t.compositeTuple(id, cidx)
		if err != nil {
			return err
		}
		if err := t.index.UpdateComposite(cidx, id, oldCixTuples[cidx.Name], newTuple); err != nil {
			return err
		}
	}
	for _, cidx := range oldType.CompositeIndexes {
		if newType.CompositeIndex(cidx.Name) == nil {
			if err := t.index.UpdateComposite(cidx, id, oldCixTuples[cidx.Name], nil); err != nil {
				return err
			}
		}
	}

	versionBytes, err := codec.EncodeUint(nil, toVersion)
	if err != nil {
		return dberr.Wrap(dberr.InvalidValue, "", "", err)
	}
	if err := t.store.Put(keys.Obj(id), versionBytes); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}

	t.fireAndEnqueue(validate.Event{
		Kind:             validate.EventSchemaChange,
		ID:               id,
		OldSchemaVersion: fromVersion,
		NewSchemaVersion: toVersion,
	}, oldType.StorageID)
	return nil
}

// migrateField rewrites one field's FLD storage and simple/reference
// index entry for a Convert or Reset plan operation. Reference and
// Counter fields never appear in a field-conversion plan (BuildPlan only
// emits conversions for Simple fields), so the only field kind
// migrateField needs to re-derive a value for is Simple.
func (t *Tx) migrateField(id objid.ObjId, oldType *schema.ObjType, newField *schema.Field, fc migrate.FieldConversion) error {
	key := keys.Field(id, fc.FieldStorageID)
	oldEncoded, ok, err := t.store.Get(key)
	if err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}

	var newEncoded []byte
	switch fc.Kind {
	case migrate.OperationReset:
		newEncoded, err = encodeSimple(newField.SimpleType, newField.EnumValues, defaultSimpleValue(newField.SimpleType))
		if err != nil {
			return err
		}
	case migrate.OperationConvert:
		oldField := oldType.FieldByStorageID(fc.FieldStorageID)
		if !ok {
			// Field was never written: nothing to convert, leave absent.
			return nil
		}
		isNull, n, err := codec.DecodePresence(oldEncoded)
		if err != nil {
			return dberr.Wrap(dberr.InvalidValue, "", "", err)
		}
		if isNull {
			return nil
		}
		zeroFull, err := encodeSimple(newField.SimpleType, newField.EnumValues, defaultSimpleValue(newField.SimpleType))
		if err != nil {
			return err
		}
		_, zn, _ := codec.DecodePresence(zeroFull)
		converted, err := migrate.ApplyPolicy(fc.Policy, oldField.SimpleType, newField.SimpleType, oldEncoded[n:], zeroFull[zn:], fc.FieldName)
		if err != nil {
			return err
		}
		newEncoded = codec.EncodeValuePrefix(nil)
		newEncoded = append(newEncoded, converted...)
	default:
		return nil
	}

	indexed := newField.Kind == schema.Reference || newField.Indexed
	if indexed {
		var oldPtr []byte
		if ok {
			oldPtr = oldEncoded
		}
		if err := t.index.UpdateSimple(indexNamespace(fc.FieldStorageID, roleSelf), id, oldPtr, newEncoded); err != nil {
			return err
		}
	}
	if err := t.store.Put(key, newEncoded); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return nil
}
