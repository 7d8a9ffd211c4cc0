package toml

import (
	"fmt"

	"permadb/internal/schema"
)

// tomlCompositeIndex maps [[types.composite_indexes]].
type tomlCompositeIndex struct {
	Name      string   `toml:"name"`
	StorageID int      `toml:"storage_id"`
	Fields    []string `toml:"fields"`
	Unique    bool     `toml:"unique"`
}

func convertCompositeIndex(tci *tomlCompositeIndex, fieldByName map[string]*schema.Field) (*schema.CompositeIndex, error) {
	if tci.StorageID <= 0 {
		return nil, fmt.Errorf("storage_id must be positive, got %d", tci.StorageID)
	}
	if len(tci.Fields) < 2 {
		return nil, fmt.Errorf("composite index needs at least 2 fields, got %d", len(tci.Fields))
	}

	ids := make([]uint32, 0, len(tci.Fields))
	for _, name := range tci.Fields {
		f, ok := fieldByName[name]
		if !ok {
			return nil, fmt.Errorf("references unknown field %q", name)
		}
		if f.Kind != schema.Simple {
			return nil, fmt.Errorf("field %q must be simple to join a composite index", name)
		}
		ids = append(ids, f.StorageID)
	}

	return &schema.CompositeIndex{
		StorageID:       uint32(tci.StorageID),
		Name:            tci.Name,
		FieldStorageIDs: ids,
		Unique:          tci.Unique,
	}, nil
}
