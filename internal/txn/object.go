package txn

import (
	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/keys"
	"permadb/internal/objid"
	"permadb/internal/schema"
	"permadb/internal/validate"
)

// Create generates a new random ObjId of typeStorageID, writes its OBJ
// record under the bound schema version, and fires a create event.
func (t *Tx) Create(typeStorageID uint32) (objid.ObjId, error) {
	if err := t.checkWritable(); err != nil {
		return objid.ObjId{}, err
	}
	if t.bound.ObjTypeByStorageID(typeStorageID) == nil {
		return objid.ObjId{}, dberr.Newf(dberr.TypeNotInSchema, "", "", "type storage id %d is not in the bound schema", typeStorageID)
	}
	id, err := objid.New(typeStorageID)
	if err != nil {
		return objid.ObjId{}, dberr.Wrap(dberr.InvalidValue, "", "", err)
	}
	if err := t.writeObjRecord(id); err != nil {
		return objid.ObjId{}, err
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventCreate, ID: id}, typeStorageID)
	return id, nil
}

// CreateWithID writes id's OBJ record directly, for callers (e.g.
// deserialization, testing) that already hold a well-formed ObjId.
// Errors if typeStorageID doesn't match id's own encoded type, or an
// object already exists at id.
func (t *Tx) CreateWithID(id objid.ObjId, typeStorageID uint32) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if id.TypeStorageID() != typeStorageID {
		return dberr.Newf(dberr.InvalidValue, "", "", "id's encoded type %d does not match %d", id.TypeStorageID(), typeStorageID)
	}
	if t.bound.ObjTypeByStorageID(typeStorageID) == nil {
		return dberr.Newf(dberr.TypeNotInSchema, "", "", "type storage id %d is not in the bound schema", typeStorageID)
	}
	exists, err := t.Exists(id)
	if err != nil {
		return err
	}
	if exists {
		return dberr.New(dberr.InvalidValue, "", "", "object already exists at this id")
	}
	if err := t.writeObjRecord(id); err != nil {
		return err
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventCreate, ID: id}, typeStorageID)
	return nil
}

func (t *Tx) writeObjRecord(id objid.ObjId) error {
	val, err := codec.EncodeUint(nil, t.version)
	if err != nil {
		return dberr.Wrap(dberr.InvalidValue, "", "", err)
	}
	if err := t.store.Put(keys.Obj(id), val); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return nil
}

// Exists reports whether id has an OBJ record.
func (t *Tx) Exists(id objid.ObjId) (bool, error) {
	_, ok, err := t.store.Get(keys.Obj(id))
	if err != nil {
		return false, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return ok, nil
}

// objSchemaVersion returns the schema version id was created/last
// migrated under.
func (t *Tx) objSchemaVersion(id objid.ObjId) (uint64, error) {
	raw, ok, err := t.store.Get(keys.Obj(id))
	if err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if !ok {
		return 0, dberr.New(dberr.DeletedObject, "", "", "")
	}
	v, _, err := codec.DecodeUint(raw)
	if err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return v, nil
}

// Delete removes id and cascades reference-field delete policies across
// the database. Returns false if id didn't exist.
func (t *Tx) Delete(id objid.ObjId) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	return t.deleteCascade(id, make(map[objid.ObjId]bool))
}

func (t *Tx) deleteCascade(id objid.ObjId, visited map[objid.ObjId]bool) (bool, error) {
	if visited[id] {
		return false, nil
	}
	exists, err := t.Exists(id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	visited[id] = true

	ownType, err := t.objTypeOf(id)
	if err != nil {
		return false, err
	}

	// Pass 1: find every other object referencing id and abort before any
	// mutation if an EXCEPTION policy applies.
	referrers, err := t.findReferrers(id)
	if err != nil {
		return false, err
	}
	for _, ref := range referrers {
		if ref.field.OnDelete == schema.OnDeleteException {
			return false, dberr.Newf(dberr.ReferencedObject, ownType.Name, ref.field.Name, "object is still referenced and on_delete is EXCEPTION")
		}
	}

	t.fireAndEnqueue(validate.Event{Kind: validate.EventDelete, ID: id}, ownType.StorageID)

	// Pass 2: apply the other policies against referrers.
	for _, ref := range referrers {
		switch ref.field.OnDelete {
		case schema.OnDeleteUnreference:
			if err := t.clearReferenceOccurrences(ref.owner, ref.field, id); err != nil {
				return false, err
			}
		case schema.OnDeleteDelete:
			if _, err := t.deleteCascade(ref.owner, visited); err != nil {
				return false, err
			}
		case schema.OnDeleteIgnore:
			// leave the dangling reference in place
		}
	}

	// Forward-delete: id's own reference fields with ForwardDelete=true
	// recursively delete their targets.
	targets, err := t.forwardDeleteTargets(id, ownType)
	if err != nil {
		return false, err
	}

	if err := t.removeAllStorageFor(id, ownType); err != nil {
		return false, err
	}
	if err := t.store.Delete(keys.Obj(id)); err != nil {
		return false, dberr.Wrap(dberr.KVIO, "", "", err)
	}

	for _, target := range targets {
		if _, err := t.deleteCascade(target, visited); err != nil {
			return false, err
		}
	}
	return true, nil
}

type referrer struct {
	owner objid.ObjId
	field *schema.Field
}

// findReferrers scans every reference field (simple or collection
// sub-field) across every type in the bound schema for entries pointing
// at target, via that field's reverse-reference index.
func (t *Tx) findReferrers(target objid.ObjId) ([]referrer, error) {
	refEncoded := codec.EncodeValuePrefix(nil)
	refEncoded = objid.Encode(refEncoded, target)

	var out []referrer
	for _, ot := range t.bound.Types {
		for _, f := range ot.Fields {
			var role uint32
			switch f.Kind {
			case schema.Reference:
				role = roleSelf
			case schema.Set, schema.List:
				if f.Element == nil || f.Element.Kind != schema.Reference {
					continue
				}
				role = roleElement
			case schema.Map:
				if f.Key != nil && f.Key.Kind == schema.Reference {
					owners, err := t.index.QueryIndex(indexNamespace(f.StorageID, roleKey), refEncoded)
					if err != nil {
						return nil, err
					}
					for _, o := range owners {
						out = append(out, referrer{owner: o, field: f})
					}
				}
				if f.Value != nil && f.Value.Kind == schema.Reference {
					owners, err := t.index.QueryIndex(indexNamespace(f.StorageID, roleValue), refEncoded)
					if err != nil {
						return nil, err
					}
					for _, o := range owners {
						out = append(out, referrer{owner: o, field: f})
					}
				}
				continue
			default:
				continue
			}
			owners, err := t.index.QueryIndex(indexNamespace(f.StorageID, role), refEncoded)
			if err != nil {
				return nil, err
			}
			for _, o := range owners {
				out = append(out, referrer{owner: o, field: f})
			}
		}
	}
	return out, nil
}

// clearReferenceOccurrences applies OnDeleteUnreference for one
// (owner, field) pair: nulls a simple reference field, or removes every
// matching element from a Set/List/Map.
func (t *Tx) clearReferenceOccurrences(owner objid.ObjId, f *schema.Field, target objid.ObjId) error {
	switch f.Kind {
	case schema.Reference:
		return t.WriteSimple(owner, f.StorageID, nil)
	case schema.Set:
		return t.removeAllSetMatches(owner, f, target)
	case schema.List:
		return t.removeAllListMatches(owner, f, target)
	case schema.Map:
		return t.removeAllMapMatches(owner, f, target)
	}
	return nil
}

// forwardDeleteTargets collects every reference target that id's own
// fields point to and that carries ForwardDelete = true.
func (t *Tx) forwardDeleteTargets(id objid.ObjId, ownType *schema.ObjType) ([]objid.ObjId, error) {
	var out []objid.ObjId
	for _, f := range ownType.Fields {
		switch f.Kind {
		case schema.Reference:
			if !f.ForwardDelete {
				continue
			}
			v, err := t.ReadSimple(id, f.StorageID)
			if err != nil {
				return nil, err
			}
			if tid, ok := v.(objid.ObjId); ok {
				out = append(out, tid)
			}
		case schema.Set:
			if f.Element == nil || f.Element.Kind != schema.Reference || !f.Element.ForwardDelete {
				continue
			}
			vals, err := t.IterSet(id, f.StorageID)
			if err != nil {
				return nil, err
			}
			for _, v := range vals {
				if tid, ok := v.(objid.ObjId); ok {
					out = append(out, tid)
				}
			}
		case schema.List:
			if f.Element == nil || f.Element.Kind != schema.Reference || !f.Element.ForwardDelete {
				continue
			}
			vals, err := t.GetList(id, f.StorageID)
			if err != nil {
				return nil, err
			}
			for _, v := range vals {
				if tid, ok := v.(objid.ObjId); ok {
					out = append(out, tid)
				}
			}
		case schema.Map:
			if f.Value != nil && f.Value.Kind == schema.Reference && f.Value.ForwardDelete {
				entries, err := t.IterMap(id, f.StorageID)
				if err != nil {
					return nil, err
				}
				for _, e := range entries {
					if tid, ok := e.Value.(objid.ObjId); ok {
						out = append(out, tid)
					}
				}
			}
		}
	}
	return out, nil
}

// removeAllStorageFor deletes every FLD/SET/LST/MAP entry for id and
// every IDX entry id currently owns.
func (t *Tx) removeAllStorageFor(id objid.ObjId, ownType *schema.ObjType) error {
	tuples := make(map[string][]byte, len(ownType.CompositeIndexes))
	for _, cidx := range ownType.CompositeIndexes {
		tuple, err := t.compositeTuple(id, cidx)
		if err != nil {
			return err
		}
		tuples[cidx.Name] = tuple
	}

	for _, f := range ownType.Fields {
		if err := t.clearFieldStorage(id, f); err != nil {
			return err
		}
	}

	for _, cidx := range ownType.CompositeIndexes {
		if err := t.index.UpdateComposite(cidx, id, tuples[cidx.Name], nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) clearFieldStorage(id objid.ObjId, f *schema.Field) error {
	switch f.Kind {
	case schema.Simple, schema.Reference:
		raw, ok, err := t.store.Get(keys.Field(id, f.StorageID))
		if err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
		if ok {
			if f.Kind == schema.Reference || f.Indexed {
				if err := t.index.UpdateSimple(indexNamespace(f.StorageID, roleSelf), id, raw, nil); err != nil {
					return err
				}
			}
			if err := t.store.Delete(keys.Field(id, f.StorageID)); err != nil {
				return dberr.Wrap(dberr.KVIO, "", "", err)
			}
		}
	case schema.Counter:
		if err := t.store.Delete(keys.Field(id, f.StorageID)); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	case schema.Set:
		vals, err := t.rawSetElements(id, f.StorageID)
		if err != nil {
			return err
		}
		for _, raw := range vals {
			if f.Element.Indexed {
				if err := t.index.RemoveCollectionElement(indexNamespace(f.StorageID, roleElement), id, raw); err != nil {
					return err
				}
			}
		}
		rng := keys.SetFieldRange(id, f.StorageID)
		if err := t.store.DeleteRange(rng.Min, rng.Max); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	case schema.List:
		_, vals, err := t.rawListElements(id, f.StorageID)
		if err != nil {
			return err
		}
		for _, raw := range vals {
			if f.Element.Indexed {
				if err := t.index.RemoveCollectionElement(indexNamespace(f.StorageID, roleElement), id, raw); err != nil {
					return err
				}
			}
		}
		rng := keys.ListFieldRange(id, f.StorageID)
		if err := t.store.DeleteRange(rng.Min, rng.Max); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	case schema.Map:
		entries, err := t.rawMapEntries(id, f.StorageID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if f.Key.Indexed {
				if err := t.index.RemoveCollectionElement(indexNamespace(f.StorageID, roleKey), id, e.keyRaw); err != nil {
					return err
				}
			}
			if f.Value.Indexed {
				if err := t.index.RemoveCollectionElement(indexNamespace(f.StorageID, roleValue), id, e.valRaw); err != nil {
					return err
				}
			}
		}
		rng := keys.MapFieldRange(id, f.StorageID)
		if err := t.store.DeleteRange(rng.Min, rng.Max); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	}
	return nil
}

func (t *Tx) fireAndEnqueue(ev validate.Event, typeStorageID uint32) {
	t.dbListeners.Dispatch(typeStorageID, ev)
	t.txListeners.Dispatch(typeStorageID, ev)
	t.maybeEnqueue(ev.ID)
}
