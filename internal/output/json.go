package output

import (
	"encoding/json"

	"permadb/internal/migrate"
	"permadb/internal/schema"
)

type jsonFormatter struct{}

type fieldPayload struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	SimpleType    string   `json:"simpleType,omitempty"`
	EnumValues    []string `json:"enumValues,omitempty"`
	Indexed       bool     `json:"indexed,omitempty"`
	Unique        bool     `json:"unique,omitempty"`
	ReferenceType uint32   `json:"referenceType,omitempty"`
	OnDelete      string   `json:"onDelete,omitempty"`
}

type typePayload struct {
	Name      string         `json:"name"`
	StorageID uint32         `json:"storageId"`
	Fields    []fieldPayload `json:"fields"`
}

type schemaPayload struct {
	Format string        `json:"format"`
	Types  []typePayload `json:"types"`
}

func (jsonFormatter) FormatSchema(s *schema.Schema) (string, error) {
	payload := schemaPayload{Format: string(FormatJSON)}
	if s != nil {
		for _, ot := range s.Types {
			tp := typePayload{Name: ot.Name, StorageID: ot.StorageID}
			for _, f := range ot.Fields {
				fp := fieldPayload{Name: f.Name, Kind: f.Kind.String()}
				switch f.Kind {
				case schema.Simple:
					fp.SimpleType = f.SimpleType.String()
					fp.EnumValues = f.EnumValues
					fp.Indexed = f.Indexed
					fp.Unique = f.Unique
				case schema.Reference:
					fp.ReferenceType = f.ReferenceType
					fp.OnDelete = f.OnDelete.String()
				}
				tp.Fields = append(tp.Fields, fp)
			}
			payload.Types = append(payload.Types, tp)
		}
	}
	return marshalJSON(payload)
}

type objectPayload struct {
	Format   string         `json:"format"`
	ID       string         `json:"id"`
	TypeName string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

func (jsonFormatter) FormatObject(v ObjectView) (string, error) {
	return marshalJSON(objectPayload{
		Format:   string(FormatJSON),
		ID:       v.ID,
		TypeName: v.TypeName,
		Fields:   v.Fields,
	})
}

type operationPayload struct {
	Kind             string `json:"kind"`
	FieldName        string `json:"fieldName"`
	Policy           string `json:"policy"`
	Note             string `json:"note,omitempty"`
	UnresolvedReason string `json:"unresolvedReason,omitempty"`
}

type planPayload struct {
	Format     string             `json:"format"`
	Operations []operationPayload `json:"operations"`
	Breaking   []string           `json:"breaking,omitempty"`
	Unresolved []string           `json:"unresolved,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
}

func (jsonFormatter) FormatPlan(p *migrate.Plan) (string, error) {
	payload := planPayload{Format: string(FormatJSON)}
	if p != nil {
		for _, op := range p.Operations {
			payload.Operations = append(payload.Operations, operationPayload{
				Kind:             op.Kind.String(),
				FieldName:        op.FieldName,
				Policy:           op.Policy.String(),
				Note:             op.Note,
				UnresolvedReason: op.UnresolvedReason,
			})
		}
		payload.Breaking = p.BreakingNotes()
		payload.Unresolved = p.UnresolvedNotes()
		payload.Notes = p.InfoNotes()
	}
	return marshalJSON(payload)
}

func marshalJSON(payload any) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
