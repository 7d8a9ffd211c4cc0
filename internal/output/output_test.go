package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/migrate"
	"permadb/internal/schema"
)

func sampleSchema() *schema.Schema {
	return &schema.Schema{
		Types: []*schema.ObjType{
			{
				StorageID: 1,
				Name:      "Person",
				Fields: []*schema.Field{
					{StorageID: 1, Name: "name", Kind: schema.Simple, SimpleType: schema.TypeString, Unique: true},
					{StorageID: 2, Name: "friend", Kind: schema.Reference, ReferenceType: 1, OnDelete: schema.OnDeleteUnreference},
				},
				CompositeIndexes: []*schema.CompositeIndex{
					{StorageID: 1, Name: "name_idx", FieldStorageIDs: []uint32{1}, Unique: true},
				},
			},
		},
	}
}

func samplePlan() *migrate.Plan {
	p := &migrate.Plan{}
	p.Operations = []migrate.FieldConversion{
		{Kind: migrate.OperationConvert, FieldName: "age", Policy: migrate.PolicyAttempt},
		{Kind: migrate.OperationReset, Risk: migrate.RiskBreaking, FieldName: "tag", Policy: migrate.PolicyReset, Note: "field \"tag\" changed encoding"},
	}
	return p
}

func TestHumanFormatterRendersSchemaObjectPlan(t *testing.T) {
	f := humanFormatter{}

	out, err := f.FormatSchema(sampleSchema())
	require.NoError(t, err)
	assert.Contains(t, out, "Person (type 1)")
	assert.Contains(t, out, "name simple")
	assert.Contains(t, out, "friend reference")

	out, err = f.FormatObject(ObjectView{ID: "obj-1", TypeName: "Person", Fields: map[string]any{"name": "alice"}})
	require.NoError(t, err)
	assert.Contains(t, out, "obj-1 (Person)")
	assert.Contains(t, out, "name = alice")

	out, err = f.FormatPlan(samplePlan())
	require.NoError(t, err)
	assert.Contains(t, out, "convert age")
	assert.Contains(t, out, "reset tag")
}

func TestJSONFormatterRendersSchemaObjectPlan(t *testing.T) {
	f := jsonFormatter{}

	out, err := f.FormatSchema(sampleSchema())
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Person"`)

	out, err = f.FormatObject(ObjectView{ID: "obj-1", TypeName: "Person", Fields: map[string]any{"name": "alice"}})
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "obj-1"`)

	out, err = f.FormatPlan(samplePlan())
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "convert"`)
}

func TestSummaryFormatterRendersSchemaObjectPlan(t *testing.T) {
	f := summaryFormatter{}

	out, err := f.FormatSchema(sampleSchema())
	require.NoError(t, err)
	assert.Contains(t, out, "Person")

	out, err = f.FormatObject(ObjectView{ID: "obj-1", TypeName: "Person", Fields: map[string]any{"name": "alice"}})
	require.NoError(t, err)
	assert.Contains(t, out, "1 fields")

	out, err = f.FormatPlan(samplePlan())
	require.NoError(t, err)
	assert.Contains(t, out, "Operations: 2 (1 convert, 1 reset, 0 retain)")
	assert.Contains(t, out, "Breaking changes: 1")
}

func TestFormatPlanEmptyPlan(t *testing.T) {
	f := humanFormatter{}
	out, err := f.FormatPlan(&migrate.Plan{})
	require.NoError(t, err)
	assert.Equal(t, "No field conversions.\n", out)
}
