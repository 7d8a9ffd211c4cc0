package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"permadb/internal/dberr"
)

func TestErrorStringIncludesEntityNameField(t *testing.T) {
	err := dberr.New(dberr.InvalidValue, "Person", "alice", "bad name").WithField("name")
	assert.Equal(t, `invalid-value: Person "alice" field "name": bad name`, err.Error())
}

func TestErrorStringFallsBackToCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := dberr.Wrap(dberr.KVIO, "", "", cause)
	assert.Equal(t, "kv-io: boom", err.Error())
}

func TestErrorsIsMatchesSentinelByKind(t *testing.T) {
	err := dberr.New(dberr.DeletedObject, "Person", "bob", "")
	assert.True(t, errors.Is(err, dberr.KindDeletedObject()))
	assert.False(t, errors.Is(err, dberr.KindInvalidValue()))
}

func TestErrorsIsUnwrapsToCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := dberr.Wrap(dberr.KVConflict, "", "", cause)
	assert.ErrorIs(t, err, cause)
}

func TestNewfFormatsMessage(t *testing.T) {
	err := dberr.Newf(dberr.TypeNotInSchema, "Person", "", "storage id %d missing", 7)
	assert.Equal(t, `type-not-in-schema: Person: storage id 7 missing`, err.Error())
}
