package checkpoint

import (
	"context"
	"errors"

	"github.com/finrisk/checkpointengine/internal/fieldschema"
)

// builtinDefinitions describes the three built-in checkpoint kinds the
// engine ships with, installed idempotently on startup. Timeout is nil
// (disabled) for all but the questionnaire, which is optional.
func builtinDefinitions() []Definition {
	optionalTimeout := 30

	return []Definition{
		{
			ControlType:                 "chunk_selector",
			Label:                       "Select relevant passages",
			Description:                 "Choose which retrieved passages should feed the summary.",
			FieldSchema: fieldschema.Schema{
				{Key: "selected_node_ids", Type: fieldschema.MultiSelect, Label: "Passages", Required: true},
			},
			PipelinePosition:            AfterRetrieval,
			SortOrder:                   0,
			ApplicableModes:             []string{"hitl_r", "hitl_full"},
			Required:                    true,
			TimeoutSeconds:              nil,
			MaxRetries:                  2,
			CircuitBreakerThreshold:     5,
			CircuitBreakerWindowMinutes: 60,
			Enabled:                     true,
		},
		{
			ControlType: "summary_editor",
			Label:       "Edit summary",
			Description: "Review and edit the generated summary before it is shown to the participant.",
			FieldSchema: fieldschema.Schema{
				{Key: "edited_text", Type: fieldschema.Textarea, Label: "Summary text", Required: true},
			},
			PipelinePosition:            AfterGeneration,
			SortOrder:                   0,
			ApplicableModes:             []string{"hitl_g", "hitl_full"},
			Required:                    true,
			TimeoutSeconds:              nil,
			MaxRetries:                  2,
			CircuitBreakerThreshold:     5,
			CircuitBreakerWindowMinutes: 60,
			Enabled:                     true,
		},
		{
			ControlType: "questionnaire",
			Label:       "Rate this answer",
			Description: "Optional feedback on confidence and citation helpfulness.",
			FieldSchema: fieldschema.Schema{
				{
					Key: "confidence", Type: fieldschema.Select, Label: "Confidence",
					Options: []fieldschema.Option{
						{Value: "1", Label: "Very low"}, {Value: "2", Label: "Low"},
						{Value: "3", Label: "Medium"}, {Value: "4", Label: "High"},
						{Value: "5", Label: "Very high"},
					},
				},
				{
					Key: "citation_helpfulness", Type: fieldschema.Radio, Label: "Were citations helpful?",
					Options: []fieldschema.Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}},
				},
			},
			PipelinePosition:            PostGeneration,
			SortOrder:                   0,
			ApplicableModes:             []string{"hitl_r", "hitl_g", "hitl_full"},
			Required:                    false,
			TimeoutSeconds:              &optionalTimeout,
			MaxRetries:                  2,
			CircuitBreakerThreshold:     5,
			CircuitBreakerWindowMinutes: 60,
			Enabled:                     true,
		},
	}
}

// Seed idempotently installs the built-in definitions: existing
// control_types are left untouched so admin edits survive restarts.
func Seed(ctx context.Context, defs DefinitionStore) error {
	for _, def := range builtinDefinitions() {
		_, err := defs.GetByControlType(ctx, def.ControlType)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if _, err := defs.Create(ctx, def); err != nil && !errors.Is(err, ErrDuplicateControlType) {
			return err
		}
	}
	return nil
}
