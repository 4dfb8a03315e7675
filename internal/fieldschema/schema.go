// Package fieldschema describes the declarative form schemas attached to
// checkpoint definitions and validates submissions against them.
package fieldschema

// FieldType identifies the kind of input control a Field renders as.
type FieldType string

const (
	Text         FieldType = "text"
	Textarea     FieldType = "textarea"
	Select       FieldType = "select"
	MultiSelect  FieldType = "multi_select"
	Radio        FieldType = "radio"
	Checkbox     FieldType = "checkbox"
	Chips        FieldType = "chips"
	Number       FieldType = "number"
	RangeControl FieldType = "range"
)

// KnownTypes lists every supported field kind, in catalog order.
var KnownTypes = []FieldType{
	Text, Textarea, Select, MultiSelect, Radio, Checkbox, Chips, Number, RangeControl,
}

func (t FieldType) Valid() bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Option is a single choice for select/radio/multi_select/chips fields.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one input in a checkpoint's form.
type Field struct {
	Key         string    `json:"key"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Default     any       `json:"default,omitempty"`
}

// Schema is an ordered list of field descriptors. It is pure data: no
// behavior beyond what Validate (in validator.go) derives from it.
type Schema []Field

// Keys returns the set of field keys declared by the schema, in order.
func (s Schema) Keys() []string {
	keys := make([]string, len(s))
	for i, f := range s {
		keys[i] = f.Key
	}
	return keys
}

func (s Schema) fieldByKey(key string) (Field, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}
