package txn

import (
	"permadb/internal/dberr"
	"permadb/internal/keys"
	"permadb/internal/objid"
	"permadb/internal/validate"
)

// RegisterListener registers handler against this transaction's
// short-lived listener registry: it fires for mutations made later in
// this same transaction and is discarded when the transaction ends.
// Register against the database's own persistent registry (whatever owns
// it across transactions) for listeners that should survive commit.
func (t *Tx) RegisterListener(filter validate.Filter, handler validate.Handler) uint64 {
	return t.txListeners.Register(filter, handler)
}

// UnregisterListener removes a listener previously returned by
// RegisterListener.
func (t *Tx) UnregisterListener(id uint64) {
	t.txListeners.Unregister(id)
}

// IterObjects returns every live object of typeStorageID, in ObjId order.
func (t *Tx) IterObjects(typeStorageID uint32) ([]objid.ObjId, error) {
	if t.bound.ObjTypeByStorageID(typeStorageID) == nil {
		return nil, dberr.Newf(dberr.TypeNotInSchema, "", "", "type storage id %d is not in the bound schema", typeStorageID)
	}
	all, err := t.IterAllObjects()
	if err != nil {
		return nil, err
	}
	var out []objid.ObjId
	for _, id := range all {
		if id.TypeStorageID() == typeStorageID {
			out = append(out, id)
		}
	}
	return out, nil
}

// IterAllObjects returns every live object across every type, in ObjId
// order (the OBJ keyspace's own order).
func (t *Tx) IterAllObjects() ([]objid.ObjId, error) {
	rng := keys.ObjRange()
	it, err := t.store.Range(rng.Min, rng.Max)
	if err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	defer it.Close()

	var out []objid.ObjId
	for it.Next() {
		id, err := keys.DecodeObj(it.Key())
		if err != nil {
			return nil, dberr.Wrap(dberr.KVIO, "", "", err)
		}
		out = append(out, id)
	}
	if err := it.Err(); err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return out, nil
}
