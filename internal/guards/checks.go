package guards

import (
	"context"
	"fmt"
	"regexp"
)

// controlTypeRegex matches valid control_type slugs: lowercase letters,
// digits, and underscores, starting with a letter.
var controlTypeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ControlTypeSlug ensures control_type is a well-formed, stable identifier.
// HARD_BLOCK — a malformed slug can't be safely referenced from the
// orchestrator or surfaced in the field-types catalog.
var ControlTypeSlug = NewGuardFunc("control_type_slug", func(_ context.Context, gctx *GuardContext) Result {
	ct := gctx.Definition.ControlType
	if ct == "" {
		return Fail("control_type_slug", HardBlock,
			"control_type is required.",
			"Provide a lowercase identifier like 'chunk_selector'.",
		)
	}
	if !controlTypeRegex.MatchString(ct) {
		return Fail("control_type_slug", HardBlock,
			"control_type must be lowercase letters, digits, and underscores, starting with a letter. Got: "+ct,
			"Use a name like 'chunk_selector' or 'summary_editor'.",
		)
	}
	return Pass("control_type_slug")
})

// LabelRequired ensures the admin-facing label is non-empty.
// HARD_BLOCK — an empty label renders as a blank control in the UI.
var LabelRequired = NewGuardFunc("label_required", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.Definition.Label == "" {
		return Fail("label_required", HardBlock,
			"label is required.",
			"Provide a short, human-readable label for the admin UI.",
		)
	}
	return Pass("label_required")
})

// PipelinePositionValid ensures pipeline_position is one of the fixed seams.
// HARD_BLOCK — an unknown position can never be resolved.
var PipelinePositionValid = NewGuardFunc("pipeline_position_valid", func(_ context.Context, gctx *GuardContext) Result {
	switch gctx.Definition.PipelinePosition {
	case "after_retrieval", "after_generation", "post_generation":
		return Pass("pipeline_position_valid")
	}
	return Fail("pipeline_position_valid", HardBlock,
		"pipeline_position must be one of after_retrieval, after_generation, post_generation. Got: "+gctx.Definition.PipelinePosition,
		"Choose a valid pipeline position.",
	)
})

// ApplicableModesDeclared warns when applicable_modes is empty — the
// definition will never be offered. SOFT_BLOCK, because an admin may
// deliberately stage a definition before enabling it for any mode.
var ApplicableModesDeclared = NewGuardFunc("applicable_modes_declared", func(_ context.Context, gctx *GuardContext) Result {
	if len(gctx.Definition.ApplicableModes) > 0 {
		return Pass("applicable_modes_declared")
	}
	return Fail("applicable_modes_declared", SoftBlock,
		"applicable_modes is empty; this definition will never be offered to any task.",
		"Add at least one mode tag, or '*' for every mode, or use force=true if this is intentional staging.",
	)
})

// FieldKeysUnique ensures the field schema has no duplicate keys.
// HARD_BLOCK — duplicate keys make submission data ambiguous.
var FieldKeysUnique = NewGuardFunc("field_keys_unique", func(_ context.Context, gctx *GuardContext) Result {
	seen := make(map[string]bool, len(gctx.Definition.FieldKeys))
	for _, key := range gctx.Definition.FieldKeys {
		if key == "" {
			return Fail("field_keys_unique", HardBlock,
				"a field_schema entry has an empty key.",
				"Give every field a non-empty, unique key.",
			)
		}
		if seen[key] {
			return Fail("field_keys_unique", HardBlock,
				"field_schema has a duplicate key: "+key,
				"Field keys must be unique within a definition's schema.",
			)
		}
		seen[key] = true
	}
	return Pass("field_keys_unique")
})

// FieldBoundsSane ensures every field's min <= max when both are declared.
// HARD_BLOCK — an inverted bound can never be satisfied by a submission.
var FieldBoundsSane = NewGuardFunc("field_bounds_sane", func(_ context.Context, gctx *GuardContext) Result {
	for i, min := range gctx.Definition.FieldMins {
		if i >= len(gctx.Definition.FieldMaxes) {
			break
		}
		max := gctx.Definition.FieldMaxes[i]
		if min != nil && max != nil && *min > *max {
			return Fail("field_bounds_sane", HardBlock,
				fmt.Sprintf("a number/range field has min (%v) greater than max (%v).", *min, *max),
				"Swap or correct the min/max bounds.",
			)
		}
	}
	return Pass("field_bounds_sane")
})

// RetryAndTimeoutNonNegative ensures max_retries and timeout_seconds (when
// set) are non-negative. HARD_BLOCK — negative values have no meaning.
var RetryAndTimeoutNonNegative = NewGuardFunc("retry_and_timeout_non_negative", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.Definition.MaxRetries < 0 {
		return Fail("retry_and_timeout_non_negative", HardBlock,
			"max_retries must be non-negative.",
			"Use 0 if retries are disallowed, or a positive count.",
		)
	}
	if gctx.Definition.TimeoutSeconds != nil && *gctx.Definition.TimeoutSeconds < 0 {
		return Fail("retry_and_timeout_non_negative", HardBlock,
			"timeout_seconds must be non-negative when set.",
			"Omit timeout_seconds to disable the timer, or use a non-negative value.",
		)
	}
	return Pass("retry_and_timeout_non_negative")
})

// BreakerPolicySane warns when a non-zero circuit_breaker_threshold is set
// without a window, since the breaker would effectively never reset its
// count. SOFT_BLOCK — this is very likely a configuration mistake but the
// engine can operate with it.
var BreakerPolicySane = NewGuardFunc("breaker_policy_sane", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.Definition.CircuitBreakerThreshold > 0 && gctx.Definition.CircuitBreakerWindowMinutes <= 0 {
		return Fail("breaker_policy_sane", SoftBlock,
			"circuit_breaker_threshold is set but circuit_breaker_window_minutes is zero; the breaker will count every failure ever recorded.",
			"Set a window in minutes, or use force=true if an unbounded window is intended.",
		)
	}
	return Pass("breaker_policy_sane")
})

// DefinitionGuards returns the guards that run before a definition is
// created or updated, in the order a reviewer would want to see them
// reported: structural problems first, policy hints last.
func DefinitionGuards() []Guard {
	return []Guard{
		ControlTypeSlug,
		LabelRequired,
		PipelinePositionValid,
		FieldKeysUnique,
		FieldBoundsSane,
		RetryAndTimeoutNonNegative,
		ApplicableModesDeclared,
		BreakerPolicySane,
	}
}
