package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/objid"
	"permadb/internal/validate"
)

func TestDispatchInvokesMatchingListenersOnly(t *testing.T) {
	reg := validate.NewRegistry()
	id, err := objid.New(7)
	require.NoError(t, err)

	var gotCreate, gotDelete []validate.Event
	reg.Register(validate.Filter{Kind: validate.EventCreate}, func(ev validate.Event) {
		gotCreate = append(gotCreate, ev)
	})
	reg.Register(validate.Filter{Kind: validate.EventDelete}, func(ev validate.Event) {
		gotDelete = append(gotDelete, ev)
	})

	reg.Dispatch(7, validate.Event{Kind: validate.EventCreate, ID: id})

	assert.Len(t, gotCreate, 1)
	assert.Empty(t, gotDelete)
	assert.Equal(t, id, gotCreate[0].ID)
}

func TestDispatchHonorsTypeAndFieldFilters(t *testing.T) {
	reg := validate.NewRegistry()
	var hits int
	reg.Register(validate.Filter{TypeStorageID: 5, FieldStorageID: 10, Kind: validate.EventSimpleChange}, func(validate.Event) {
		hits++
	})

	reg.Dispatch(6, validate.Event{Kind: validate.EventSimpleChange, FieldStorageID: 10})
	assert.Equal(t, 0, hits, "different type storage ID must not match")

	reg.Dispatch(5, validate.Event{Kind: validate.EventSimpleChange, FieldStorageID: 11})
	assert.Equal(t, 0, hits, "different field storage ID must not match")

	reg.Dispatch(5, validate.Event{Kind: validate.EventSimpleChange, FieldStorageID: 10})
	assert.Equal(t, 1, hits)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	reg := validate.NewRegistry()
	var hits int
	id := reg.Register(validate.Filter{AnyKind: true}, func(validate.Event) { hits++ })

	reg.Dispatch(1, validate.Event{Kind: validate.EventCreate})
	reg.Unregister(id)
	reg.Dispatch(1, validate.Event{Kind: validate.EventCreate})

	assert.Equal(t, 1, hits)
}

func TestHandlerCanRegisterDuringDispatchWithoutDeadlock(t *testing.T) {
	reg := validate.NewRegistry()
	var secondHits int
	reg.Register(validate.Filter{AnyKind: true}, func(validate.Event) {
		reg.Register(validate.Filter{AnyKind: true}, func(validate.Event) { secondHits++ })
	})

	reg.Dispatch(1, validate.Event{Kind: validate.EventCreate})
	assert.Equal(t, 0, secondHits, "listener registered mid-dispatch should not run in the same dispatch")

	reg.Dispatch(1, validate.Event{Kind: validate.EventCreate})
	assert.Equal(t, 1, secondHits)
}
