package fieldschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numPtr(f float64) *float64 { return &f }

func TestValidate_RequiredMissing(t *testing.T) {
	schema := Schema{
		{Key: "notes", Type: Textarea, Label: "Notes", Required: true},
	}

	_, issues := Validate(schema, map[string]any{"notes": ""}, ValidateOptions{})
	require.Len(t, issues, 1)
	assert.Equal(t, "notes", issues[0].Key)
	assert.Equal(t, "This field is required.", issues[0].Message)
}

func TestValidate_RequiredWhitespaceOnlyFails(t *testing.T) {
	schema := Schema{{Key: "notes", Type: Text, Required: true}}
	_, issues := Validate(schema, map[string]any{"notes": "   "}, ValidateOptions{})
	require.Len(t, issues, 1)
}

func TestValidate_SuccessAfterFix(t *testing.T) {
	schema := Schema{{Key: "notes", Type: Textarea, Required: true}}
	out, issues := Validate(schema, map[string]any{"notes": "hi"}, ValidateOptions{})
	require.Empty(t, issues)
	assert.Equal(t, "hi", out["notes"])
}

func TestValidate_UnknownKeysDroppedByDefault(t *testing.T) {
	schema := Schema{{Key: "a", Type: Text}}
	out, issues := Validate(schema, map[string]any{"a": "x", "extra": "y"}, ValidateOptions{})
	require.Empty(t, issues)
	assert.Equal(t, "x", out["a"])
	_, ok := out["extra"]
	assert.False(t, ok)
}

func TestValidate_UnknownKeysRejectedInStrictMode(t *testing.T) {
	schema := Schema{{Key: "a", Type: Text}}
	_, issues := Validate(schema, map[string]any{"a": "x", "extra": "y"}, ValidateOptions{Strict: true})
	require.Len(t, issues, 1)
	assert.Equal(t, "extra", issues[0].Key)
}

func TestValidate_SelectMustMatchOption(t *testing.T) {
	schema := Schema{{
		Key: "choice", Type: Select, Required: true,
		Options: []Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}},
	}}

	_, issues := Validate(schema, map[string]any{"choice": "maybe"}, ValidateOptions{})
	require.Len(t, issues, 1)

	out, issues := Validate(schema, map[string]any{"choice": "yes"}, ValidateOptions{})
	require.Empty(t, issues)
	assert.Equal(t, "yes", out["choice"])
}

func TestValidate_MultiSelectFreeFormWhenNoOptions(t *testing.T) {
	schema := Schema{{Key: "tags", Type: Chips}}
	out, issues := Validate(schema, map[string]any{"tags": []any{"a", "b"}}, ValidateOptions{})
	require.Empty(t, issues)
	assert.Equal(t, []string{"a", "b"}, out["tags"])
}

func TestValidate_MultiSelectRejectsUnknownOption(t *testing.T) {
	schema := Schema{{
		Key: "tags", Type: MultiSelect,
		Options: []Option{{Value: "a", Label: "A"}},
	}}
	_, issues := Validate(schema, map[string]any{"tags": []any{"a", "zzz"}}, ValidateOptions{})
	require.Len(t, issues, 1)
}

func TestValidate_CheckboxAbsentDefaultsFalse(t *testing.T) {
	schema := Schema{{Key: "agree", Type: Checkbox}}
	out, issues := Validate(schema, map[string]any{}, ValidateOptions{})
	require.Empty(t, issues)
	assert.Equal(t, false, out["agree"])
}

func TestValidate_CheckboxWrongType(t *testing.T) {
	schema := Schema{{Key: "agree", Type: Checkbox}}
	_, issues := Validate(schema, map[string]any{"agree": "true"}, ValidateOptions{})
	require.Len(t, issues, 1)
}

func TestValidate_NumberBounds(t *testing.T) {
	schema := Schema{{Key: "confidence", Type: Number, Min: numPtr(1), Max: numPtr(5)}}

	_, issues := Validate(schema, map[string]any{"confidence": 6.0}, ValidateOptions{})
	require.Len(t, issues, 1)

	out, issues := Validate(schema, map[string]any{"confidence": 4.0}, ValidateOptions{})
	require.Empty(t, issues)
	assert.Equal(t, 4.0, out["confidence"])
}

func TestValidate_TextRejectsNumber(t *testing.T) {
	schema := Schema{{Key: "name", Type: Text}}
	_, issues := Validate(schema, map[string]any{"name": 42.0}, ValidateOptions{})
	require.Len(t, issues, 1)
}

func TestValidate_DefaultsAppliedForAbsentOptionalField(t *testing.T) {
	schema := Schema{{Key: "priority", Type: Text, Default: "normal"}}
	out, issues := Validate(schema, map[string]any{}, ValidateOptions{})
	require.Empty(t, issues)
	assert.Equal(t, "normal", out["priority"])
}

func TestValidate_DefaultsNotAppliedForRequiredField(t *testing.T) {
	schema := Schema{{Key: "priority", Type: Text, Required: true, Default: "normal"}}
	_, issues := Validate(schema, map[string]any{}, ValidateOptions{})
	require.Len(t, issues, 1)
}
