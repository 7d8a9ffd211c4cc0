package validate

import (
	"sync"

	"permadb/internal/dberr"
	"permadb/internal/objid"
)

// Checker performs three validation passes against one object, in
// order: structural reference integrity, uniqueness, and user-defined
// validators. A transaction implements Checker directly —
// it already owns the schema, KV, and index access each pass needs — so
// this package stays a leaf and never imports the transaction package.
type Checker interface {
	// CheckStructural verifies every reference held by id points at a
	// live object, unless the holding field allows dangling references.
	CheckStructural(id objid.ObjId) error
	// CheckUniqueness verifies every unique simple field and unique
	// composite index on id's type has no other object sharing its value.
	CheckUniqueness(id objid.ObjId) error
	// CheckUserDefined runs every registered UserValidators function
	// against id.
	CheckUserDefined(id objid.ObjId) error
}

// Run executes the three passes against id in order, stopping at (and
// returning) the first failure.
func Run(c Checker, id objid.ObjId) error {
	if err := c.CheckStructural(id); err != nil {
		return err
	}
	if err := c.CheckUniqueness(id); err != nil {
		return err
	}
	return c.CheckUserDefined(id)
}

// UserValidatorFunc is an application-supplied check run against one
// object during the user-defined validation pass. It should return a
// *dberr.Error of Kind ValidationFailed (or wrap one) on failure.
type UserValidatorFunc func(id objid.ObjId) error

// UserValidators is a mutex-guarded collection of UserValidatorFunc: the
// same registration shape as Registry, a write lock for registration and
// a read-locked snapshot taken before invocation so a validator that
// registers another validator can't deadlock.
type UserValidators struct {
	mu  sync.RWMutex
	fns []UserValidatorFunc
}

// NewUserValidators returns an empty collection.
func NewUserValidators() *UserValidators {
	return &UserValidators{}
}

// Register appends fn to the collection.
func (u *UserValidators) Register(fn UserValidatorFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fns = append(u.fns, fn)
}

// Run invokes every registered validator against id, stopping at the
// first error. A bare error from fn is wrapped as ValidationFailed; a
// *dberr.Error is passed through unchanged so callers can distinguish
// finer-grained kinds if they chose to return one.
func (u *UserValidators) Run(id objid.ObjId) error {
	u.mu.RLock()
	snapshot := make([]UserValidatorFunc, len(u.fns))
	copy(snapshot, u.fns)
	u.mu.RUnlock()

	for _, fn := range snapshot {
		if err := fn(id); err != nil {
			if de, ok := err.(*dberr.Error); ok {
				return de
			}
			return dberr.Wrap(dberr.ValidationFailed, "", "", err)
		}
	}
	return nil
}
