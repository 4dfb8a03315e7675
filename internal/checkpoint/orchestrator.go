package checkpoint

import "context"

// Orchestrator is the read-only facade the chat pipeline consumes: resolve
// active checkpoints at a position, and look one up by id. It owns no
// lifecycle transitions — submissions go through the Controller directly,
// which the HTTP layer wires up separately.
type Orchestrator struct {
	resolver  *Resolver
	instances InstanceStore
}

func NewOrchestrator(resolver *Resolver, instances InstanceStore) *Orchestrator {
	return &Orchestrator{resolver: resolver, instances: instances}
}

// Resolve returns the ordered, active checkpoints at position for task.
func (o *Orchestrator) Resolve(ctx context.Context, taskID string, position PipelinePosition, mode string) ([]Instance, error) {
	return o.resolver.Resolve(ctx, taskID, position, mode)
}

// Get returns a single instance by id, scoped to its owning task.
func (o *Orchestrator) Get(ctx context.Context, taskID, instanceID string) (Instance, error) {
	return o.instances.GetByID(ctx, taskID, instanceID)
}

// Blocking reports whether a required, non-terminal checkpoint is present
// among instances — the pipeline progression gate.
func Blocking(instances []Instance, definitionByID map[string]Definition) bool {
	for _, inst := range instances {
		if inst.State.Terminal() {
			continue
		}
		def, ok := definitionByID[inst.DefinitionID]
		if !ok || !def.Required {
			continue
		}
		return true
	}
	return false
}
