package httpapi

import "github.com/finrisk/checkpointengine/internal/fieldschema"

// fieldTypeDescriptor documents one supported field kind for the admin UI's
// form builder.
type fieldTypeDescriptor struct {
	Type           fieldschema.FieldType `json:"type"`
	SupportsOptions bool                 `json:"supports_options"`
	SupportsBounds  bool                 `json:"supports_bounds"`
}

var fieldTypeNotes = map[fieldschema.FieldType]fieldTypeDescriptor{
	fieldschema.Text:         {Type: fieldschema.Text},
	fieldschema.Textarea:     {Type: fieldschema.Textarea},
	fieldschema.Select:       {Type: fieldschema.Select, SupportsOptions: true},
	fieldschema.MultiSelect:  {Type: fieldschema.MultiSelect, SupportsOptions: true},
	fieldschema.Radio:        {Type: fieldschema.Radio, SupportsOptions: true},
	fieldschema.Checkbox:     {Type: fieldschema.Checkbox},
	fieldschema.Chips:        {Type: fieldschema.Chips, SupportsOptions: true},
	fieldschema.Number:       {Type: fieldschema.Number, SupportsBounds: true},
	fieldschema.RangeControl: {Type: fieldschema.RangeControl, SupportsBounds: true},
}

// fieldTypeCatalog returns the static catalog of supported field kinds, in
// the same order fieldschema.KnownTypes declares them.
func fieldTypeCatalog() []fieldTypeDescriptor {
	out := make([]fieldTypeDescriptor, 0, len(fieldschema.KnownTypes))
	for _, t := range fieldschema.KnownTypes {
		out = append(out, fieldTypeNotes[t])
	}
	return out
}
