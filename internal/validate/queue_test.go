package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/objid"
	"permadb/internal/validate"
)

func TestQueueEnqueueDedupes(t *testing.T) {
	q := validate.NewQueue()
	id, err := objid.New(1)
	require.NoError(t, err)

	q.Enqueue(id)
	q.Enqueue(id)
	assert.Equal(t, 1, q.Len())
}

func TestQueueDrainVisitsEveryPendingObjectOnce(t *testing.T) {
	q := validate.NewQueue()
	a, err := objid.New(1)
	require.NoError(t, err)
	b, err := objid.New(1)
	require.NoError(t, err)
	q.Enqueue(a)
	q.Enqueue(b)

	var visited []objid.ObjId
	err = q.Drain(func(id objid.ObjId) error {
		visited = append(visited, id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []objid.ObjId{a, b}, visited)
	assert.Equal(t, 0, q.Len())
}

func TestQueueDrainPicksUpObjectsEnqueuedDuringDrain(t *testing.T) {
	q := validate.NewQueue()
	a, err := objid.New(1)
	require.NoError(t, err)
	b, err := objid.New(1)
	require.NoError(t, err)
	q.Enqueue(a)

	var visited []objid.ObjId
	err = q.Drain(func(id objid.ObjId) error {
		visited = append(visited, id)
		if id == a {
			q.Enqueue(b)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []objid.ObjId{a, b}, visited)
}

func TestQueueDrainStopsAtFirstError(t *testing.T) {
	q := validate.NewQueue()
	a, err := objid.New(1)
	require.NoError(t, err)
	b, err := objid.New(1)
	require.NoError(t, err)
	q.Enqueue(a)
	q.Enqueue(b)

	boom := assertError("boom")
	var visited int
	err = q.Drain(func(objid.ObjId) error {
		visited++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, visited)
}

type stringError string

func (e stringError) Error() string { return string(e) }

func assertError(msg string) error { return stringError(msg) }
