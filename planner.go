package tokenmeter

import (
	"context"

	"goa.design/goa-ai/runtime/agent/model"
	"goa.design/goa-ai/runtime/agent/planner"
)

// MeteringPlanner wraps a planner.Planner to inject token metering into the
// LLM calls an agent makes. It intercepts ModelClient() calls on the
// PlannerContext and wraps the returned model.Client with a
// MeteringModelClient.
type MeteringPlanner struct {
	// Inner is the wrapped planner.
	Inner planner.Planner

	// Meter is the metering client.
	Meter *Meter

	// ProviderName identifies the LLM provider behind the agent's model
	// clients (e.g., "openai", "anthropic"). Normalized on emission.
	ProviderName string
}

func (p *MeteringPlanner) PlanStart(ctx context.Context, input *planner.PlanInput) (*planner.PlanResult, error) {
	input.Agent = &meteringPlannerContext{
		PlannerContext: input.Agent,
		meter:          p.Meter,
		provider:       p.ProviderName,
	}
	return p.Inner.PlanStart(ctx, input)
}

func (p *MeteringPlanner) PlanResume(ctx context.Context, input *planner.PlanResumeInput) (*planner.PlanResult, error) {
	input.Agent = &meteringPlannerContext{
		PlannerContext: input.Agent,
		meter:          p.Meter,
		provider:       p.ProviderName,
	}
	return p.Inner.PlanResume(ctx, input)
}

// meteringPlannerContext wraps PlannerContext to intercept ModelClient()
// calls. All other PlannerContext methods are inherited from the embedded
// interface.
type meteringPlannerContext struct {
	planner.PlannerContext
	meter    *Meter
	provider string
}

func (m *meteringPlannerContext) ModelClient(id string) (model.Client, bool) {
	client, ok := m.PlannerContext.ModelClient(id)
	if !ok {
		return nil, false
	}
	return &MeteringModelClient{
		Inner:        client,
		Meter:        m.meter,
		ModelID:      id,
		ProviderName: m.provider,
	}, true
}

// Compile-time interface satisfaction check.
var _ planner.PlannerContext = (*meteringPlannerContext)(nil)
