package txn

import (
	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/keys"
	"permadb/internal/objid"
	"permadb/internal/schema"
	"permadb/internal/validate"
)

// ReadCounter returns fieldStorageID's current counter value on id,
// defaulting to 0 if never adjusted.
func (t *Tx) ReadCounter(id objid.ObjId, fieldStorageID uint32) (int64, error) {
	if _, err := t.requireExists(id); err != nil {
		return 0, err
	}
	f, err := t.fieldOf(id, fieldStorageID)
	if err != nil {
		return 0, err
	}
	if f.Kind != schema.Counter {
		return 0, dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a counter")
	}
	raw, ok, err := t.store.Get(keys.Field(id, fieldStorageID))
	if err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if !ok {
		return 0, nil
	}
	v, _, err := codec.DecodeInt(raw)
	if err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return v, nil
}

// AdjustCounter adds delta to fieldStorageID's counter on id and returns
// the resulting value. Concurrent adjustments commute, so there is no
// "old value" to compare against: the listener event reports only the
// delta. Like any other field write, the adjustment enqueues id for
// validation.
func (t *Tx) AdjustCounter(id objid.ObjId, fieldStorageID uint32, delta int64) (int64, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	ownType, err := t.requireExists(id)
	if err != nil {
		return 0, err
	}
	f, err := t.fieldOf(id, fieldStorageID)
	if err != nil {
		return 0, err
	}
	if f.Kind != schema.Counter {
		return 0, dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a counter")
	}
	result, err := t.store.AtomicAdd(keys.Field(id, fieldStorageID), delta)
	if err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventCounterAdjust, ID: id, FieldStorageID: fieldStorageID, Delta: delta}, ownType.StorageID)
	return result, nil
}
