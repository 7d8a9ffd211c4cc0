package txn

import (
	"permadb/internal/dberr"
	"permadb/internal/index"
	"permadb/internal/kvstore"
	"permadb/internal/objid"
	"permadb/internal/schema"
	"permadb/internal/validate"
)

// Tx is one open transaction bound to a single schema version, wrapping
// one kvstore.Tx. Its mutation buffer is the underlying KV transaction
// itself (every write goes straight through); the validation queue and
// commit-callback list are the only state buffered here.
type Tx struct {
	store    kvstore.Tx
	registry *schema.Registry
	index    *index.Maintainer

	version uint64
	bound   *schema.Schema

	dbListeners *validate.Registry
	txListeners *validate.Registry
	userValid   *validate.UserValidators
	queue       *validate.Queue

	commitCallbacks []func() error

	opts Options
	done bool
}

// Open binds store to a schema version and returns a ready-to-use
// transaction. If desired is non-nil, it is resolved via the registry's
// OpenTransaction algorithm; otherwise opts.SchemaVersion is used
// verbatim, or the highest registered version if 0.
// dbListeners/userValid are the database's persistent registrations,
// shared across every transaction opened against it; Tx also carries its
// own short-lived, transaction-scoped listener registry.
func Open(store kvstore.Tx, desired *schema.Schema, dbListeners *validate.Registry, userValid *validate.UserValidators, opts Options) (*Tx, error) {
	reg := schema.NewRegistry(store)

	var version uint64
	var err error
	if desired != nil {
		version, err = reg.OpenTransaction(desired, opts.AllowNewSchema)
	} else if opts.SchemaVersion != 0 {
		version = opts.SchemaVersion
	} else {
		version, err = reg.HighestVersion()
	}
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, dberr.New(dberr.SchemaMismatch, "", "", "no schema registered and none supplied")
	}

	bound, ok, err := reg.Get(version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dberr.Newf(dberr.SchemaMismatch, "", "", "schema version %d is not registered", version)
	}

	if dbListeners == nil {
		dbListeners = validate.NewRegistry()
	}
	if userValid == nil {
		userValid = validate.NewUserValidators()
	}

	return &Tx{
		store:       store,
		registry:    reg,
		index:       index.New(store),
		version:     version,
		bound:       bound,
		dbListeners: dbListeners,
		txListeners: validate.NewRegistry(),
		userValid:   userValid,
		queue:       validate.NewQueue(),
		opts:        opts,
	}, nil
}

// Schema returns the schema version this transaction is bound to.
func (t *Tx) Schema() *schema.Schema { return t.bound }

// SchemaVersion returns the bound version number.
func (t *Tx) SchemaVersion() uint64 { return t.version }

// Commit drains the validation queue (unless ValidationDisabled), runs
// every commit callback, and commits the underlying KV transaction.
// Commit-time errors abort the transaction: the KV adapter is rolled
// back before the error is returned.
func (t *Tx) Commit() error {
	if t.done {
		return dberr.New(dberr.KVIO, "", "", "transaction already closed")
	}
	if t.opts.ValidationMode != ValidationDisabled {
		if err := t.queue.Drain(func(id objid.ObjId) error {
			return validate.Run(t, id)
		}); err != nil {
			_ = t.store.Rollback()
			t.done = true
			return err
		}
	}
	for _, cb := range t.commitCallbacks {
		if err := cb(); err != nil {
			_ = t.store.Rollback()
			t.done = true
			return err
		}
	}
	t.done = true
	if err := t.store.Commit(); err != nil {
		return dberr.Wrap(dberr.KVConflict, "", "", err)
	}
	return nil
}

// Rollback discards the validation queue and the underlying KV
// transaction.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.store.Rollback(); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return nil
}

// Revalidate explicitly enqueues id for validation at the next drain,
// regardless of ValidationMode.
func (t *Tx) Revalidate(id objid.ObjId) {
	t.queue.Enqueue(id)
}

// AddCommitCallback registers f to run after validation succeeds but
// before the KV transaction commits.
func (t *Tx) AddCommitCallback(f func() error) {
	t.commitCallbacks = append(t.commitCallbacks, f)
}

func (t *Tx) checkWritable() error {
	if t.done {
		return dberr.New(dberr.KVIO, "", "", "transaction already closed")
	}
	if t.opts.ReadOnly {
		return dberr.New(dberr.InvalidValue, "", "", "transaction is read-only")
	}
	return nil
}

func (t *Tx) maybeEnqueue(id objid.ObjId) {
	if t.opts.ValidationMode == ValidationAutomatic {
		t.queue.Enqueue(id)
	}
}

// objTypeOf looks up the bound schema's ObjType for id by its encoded
// type storage ID, returning dberr.TypeNotInSchema if absent.
func (t *Tx) objTypeOf(id objid.ObjId) (*schema.ObjType, error) {
	ot := t.bound.ObjTypeByStorageID(id.TypeStorageID())
	if ot == nil {
		return nil, dberr.Newf(dberr.TypeNotInSchema, "", "", "type storage id %d is not in the bound schema", id.TypeStorageID())
	}
	return ot, nil
}

// fieldOf resolves fieldStorageID on id's object type.
func (t *Tx) fieldOf(id objid.ObjId, fieldStorageID uint32) (*schema.Field, error) {
	ot, err := t.objTypeOf(id)
	if err != nil {
		return nil, err
	}
	f := ot.FieldByStorageID(fieldStorageID)
	if f == nil {
		return nil, dberr.Newf(dberr.TypeNotInSchema, ot.Name, "", "no field with storage id %d", fieldStorageID)
	}
	return f, nil
}
