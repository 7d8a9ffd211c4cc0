package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/schema"
)

func personSchema(nameIndexed bool) *schema.Schema {
	return &schema.Schema{
		Types: []*schema.ObjType{
			{
				StorageID: 1,
				Name:      "Person",
				Fields: []*schema.Field{
					{StorageID: 10, Name: "name", Kind: schema.Simple, SimpleType: schema.TypeString, Indexed: nameIndexed, Unique: true},
					{StorageID: 11, Name: "age", Kind: schema.Simple, SimpleType: schema.TypeInt},
					{StorageID: 12, Name: "tags", Kind: schema.Set, Element: &schema.SubField{
						StorageID: schema.SubFieldElement, Kind: schema.Simple, SimpleType: schema.TypeString, Indexed: true,
					}},
				},
			},
		},
	}
}

func TestCanonicalEncodeDecodeRoundTrip(t *testing.T) {
	s := personSchema(true)
	buf := s.CanonicalBytes()
	got, err := schema.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, s.CanonicalBytes(), got.CanonicalBytes())
	assert.Equal(t, s.ID(), got.ID())
}

func TestSchemaIDStableUnderFieldReordering(t *testing.T) {
	a := personSchema(true)
	b := personSchema(true)
	b.Types[0].Fields[0], b.Types[0].Fields[1] = b.Types[0].Fields[1], b.Types[0].Fields[0]
	assert.Equal(t, a.ID(), b.ID(), "canonical encoding sorts fields by storage ID, so reordering must not change the schema ID")
}

func TestSchemaIDChangesWithIndexedFlag(t *testing.T) {
	a := personSchema(true)
	b := personSchema(false)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestValidateRejectsDuplicateStorageID(t *testing.T) {
	s := personSchema(true)
	s.Types[0].Fields[1].StorageID = 10
	err := s.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsMissingElementSubField(t *testing.T) {
	s := personSchema(true)
	s.Types[0].Fields[2].Element = nil
	err := s.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsCompositeIndexOnComplexField(t *testing.T) {
	s := personSchema(true)
	s.Types[0].CompositeIndexes = []*schema.CompositeIndex{
		{StorageID: 1, Name: "bad", FieldStorageIDs: []uint32{10, 12}},
	}
	err := s.Validate()
	assert.Error(t, err)
}

func TestCompatibleWithAllowsIndexedChange(t *testing.T) {
	older := personSchema(false)
	newer := personSchema(true)
	assert.NoError(t, newer.CompatibleWith(older))
}

func TestCompatibleWithRejectsTypeChange(t *testing.T) {
	older := personSchema(true)
	newer := personSchema(true)
	newer.Types[0].Fields[1].Kind = schema.Reference
	newer.Types[0].Fields[1].SimpleType = 0
	assert.Error(t, newer.CompatibleWith(older))
}

func TestObjTypeAndFieldLookupHelpers(t *testing.T) {
	s := personSchema(true)
	person := s.ObjType("Person")
	require.NotNil(t, person)
	assert.Equal(t, person, s.ObjTypeByStorageID(1))
	assert.Equal(t, "name", person.Field("name").Name)
	assert.Equal(t, person.Field("name"), person.FieldByStorageID(10))
	assert.Nil(t, s.ObjType("Nonexistent"))
}
