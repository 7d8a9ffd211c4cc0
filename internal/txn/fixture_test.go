package txn_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"permadb/internal/kvstore"
	"permadb/internal/kvstore/memkv"
	"permadb/internal/migrate"
	"permadb/internal/schema"
	"permadb/internal/txn"
	"permadb/internal/validate"
)

// Storage IDs used throughout the txn test suite.
const (
	personType uint32 = 1
	teamType   uint32 = 2

	personName    uint32 = 10
	personAge     uint32 = 11
	personFriend  uint32 = 12
	personTags    uint32 = 13
	personScores  uint32 = 14
	personAttrs   uint32 = 15
	personBalance uint32 = 16
	personMentor  uint32 = 17

	teamName    uint32 = 20
	teamCaptain uint32 = 21
	teamMembers uint32 = 22
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Types: []*schema.ObjType{
			{
				StorageID: personType,
				Name:      "Person",
				Fields: []*schema.Field{
					{StorageID: personName, Name: "name", Kind: schema.Simple, SimpleType: schema.TypeString, Indexed: true, Unique: true},
					{StorageID: personAge, Name: "age", Kind: schema.Simple, SimpleType: schema.TypeInt},
					{StorageID: personFriend, Name: "friend", Kind: schema.Reference, ReferenceType: personType, OnDelete: schema.OnDeleteUnreference},
					{StorageID: personTags, Name: "tags", Kind: schema.Set, Element: &schema.SubField{
						StorageID: schema.SubFieldElement, Kind: schema.Simple, SimpleType: schema.TypeString, Indexed: true,
					}},
					{StorageID: personScores, Name: "scores", Kind: schema.List, Element: &schema.SubField{
						StorageID: schema.SubFieldElement, Kind: schema.Simple, SimpleType: schema.TypeInt,
					}},
					{StorageID: personAttrs, Name: "attrs", Kind: schema.Map,
						Key:   &schema.SubField{StorageID: schema.SubFieldKey, Kind: schema.Simple, SimpleType: schema.TypeString, Indexed: true},
						Value: &schema.SubField{StorageID: schema.SubFieldValue, Kind: schema.Simple, SimpleType: schema.TypeString},
					},
					{StorageID: personBalance, Name: "balance", Kind: schema.Counter},
					{StorageID: personMentor, Name: "mentor", Kind: schema.Reference, ReferenceType: personType, OnDelete: schema.OnDeleteIgnore},
				},
				CompositeIndexes: []*schema.CompositeIndex{
					{StorageID: 1, Name: "name_age", FieldStorageIDs: []uint32{personName, personAge}, Unique: true},
				},
			},
			{
				StorageID: teamType,
				Name:      "Team",
				Fields: []*schema.Field{
					{StorageID: teamName, Name: "name", Kind: schema.Simple, SimpleType: schema.TypeString},
					{StorageID: teamCaptain, Name: "captain", Kind: schema.Reference, ReferenceType: personType, OnDelete: schema.OnDeleteException},
					{StorageID: teamMembers, Name: "members", Kind: schema.Set, Element: &schema.SubField{
						StorageID: schema.SubFieldElement, Kind: schema.Reference, ReferenceType: personType, ForwardDelete: true, OnDelete: schema.OnDeleteUnreference,
					}},
				},
			},
		},
	}
}

// openTx returns a ready transaction bound to a freshly-registered copy of
// testSchema, backed by an in-process memkv store, and its own persistent
// listener registry + user validators (so tests can register against
// either).
func openTx(t *testing.T, opts txn.Options) (*txn.Tx, kvstore.Tx, *validate.Registry, *validate.UserValidators) {
	t.Helper()
	store := memkv.New()
	kvtx, err := store.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvtx.Rollback() })

	dbListeners := validate.NewRegistry()
	userValid := validate.NewUserValidators()
	tx, err := txn.Open(kvtx, testSchema(), dbListeners, userValid, opts)
	require.NoError(t, err)
	return tx, kvtx, dbListeners, userValid
}

func defaultOpts() txn.Options {
	return txn.Options{AllowNewSchema: true, ValidationMode: txn.ValidationAutomatic, UpgradeConversionDefault: migrate.PolicyAttempt}
}
