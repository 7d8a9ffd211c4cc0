package toml

import (
	"fmt"

	"permadb/internal/schema"
)

// tomlType maps [[types]].
type tomlType struct {
	Name             string               `toml:"name"`
	StorageID        int                  `toml:"storage_id"`
	Fields           []tomlField          `toml:"fields"`
	CompositeIndexes []tomlCompositeIndex `toml:"composite_indexes"`
}

func (c *converter) convertType(tt *tomlType) (*schema.ObjType, error) {
	if tt.StorageID <= 0 {
		return nil, fmt.Errorf("storage_id must be positive, got %d", tt.StorageID)
	}

	ot := &schema.ObjType{
		StorageID: uint32(tt.StorageID),
		Name:      tt.Name,
		Fields:    make([]*schema.Field, 0, len(tt.Fields)),
	}

	fieldByName := make(map[string]*schema.Field, len(tt.Fields))
	for i := range tt.Fields {
		f, err := c.convertField(&tt.Fields[i])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", tt.Fields[i].Name, err)
		}
		if _, dup := fieldByName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field name %q", f.Name)
		}
		fieldByName[f.Name] = f
		ot.Fields = append(ot.Fields, f)
	}

	ot.CompositeIndexes = make([]*schema.CompositeIndex, 0, len(tt.CompositeIndexes))
	for i := range tt.CompositeIndexes {
		ci, err := convertCompositeIndex(&tt.CompositeIndexes[i], fieldByName)
		if err != nil {
			return nil, fmt.Errorf("composite index %q: %w", tt.CompositeIndexes[i].Name, err)
		}
		ot.CompositeIndexes = append(ot.CompositeIndexes, ci)
	}

	return ot, nil
}
