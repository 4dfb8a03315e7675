package checkpoint

// allowedTransitions is the instance state-machine table consulted by
// Controller.Skip, Retry and Timeout: for each source state, the set of
// states those operations may move an instance to. Submit and Fail do not
// consult it; they reject only terminal source states (so Submit may move a
// failed or timed_out instance to submitted). collapsed is reachable only
// via UI-side condensation of a submitted instance, not through any operation in this package, so it has
// no outgoing or engine-driven incoming edges here.
var allowedTransitions = map[InstanceState][]InstanceState{
	StatePending:   {StateOffered},
	StateOffered:   {StateActive, StateSubmitted, StateSkipped, StateFailed, StateTimedOut},
	StateActive:    {StateSubmitted, StateSkipped, StateFailed, StateTimedOut},
	StateFailed:    {StateOffered, StateFailed, StateSkipped},
	StateTimedOut:  {StateOffered, StateTimedOut, StateSkipped},
	StateSubmitted: {},
	StateSkipped:   {},
	StateCollapsed: {},
}

// isAllowedTransition reports whether to is reachable from from in one
// Lifecycle Controller step.
func isAllowedTransition(from, to InstanceState) bool {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if candidate == to {
			return true
		}
	}
	return false
}
