package checkpoint

import "github.com/finrisk/checkpointengine/internal/guards"

// GuardView projects a Definition into the shape the guards package checks
// against, so the HTTP layer can run structural validation before handing a
// submitted definition to the store.
func (d Definition) GuardView() guards.DefinitionView {
	keys := make([]string, len(d.FieldSchema))
	mins := make([]*float64, len(d.FieldSchema))
	maxes := make([]*float64, len(d.FieldSchema))
	for i, f := range d.FieldSchema {
		keys[i] = f.Key
		mins[i] = f.Min
		maxes[i] = f.Max
	}

	return guards.DefinitionView{
		ControlType:                 d.ControlType,
		Label:                       d.Label,
		PipelinePosition:            string(d.PipelinePosition),
		SortOrder:                   d.SortOrder,
		ApplicableModes:             d.ApplicableModes,
		TimeoutSeconds:              d.TimeoutSeconds,
		MaxRetries:                  d.MaxRetries,
		CircuitBreakerThreshold:     d.CircuitBreakerThreshold,
		CircuitBreakerWindowMinutes: d.CircuitBreakerWindowMinutes,
		FieldKeys:                   keys,
		FieldMins:                   mins,
		FieldMaxes:                  maxes,
	}
}
