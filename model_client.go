package tokenmeter

import (
	"context"
	"sync"

	"goa.design/goa-ai/runtime/agent/model"
)

// MeteringModelClient wraps a goa-ai model.Client so the token usage of
// agent LLM calls is billed as meter events. It is the agent-framework
// counterpart of the per-provider wrappers: goa-ai has already normalized
// the provider wire format into model.TokenUsage, so only attribution and
// emission remain.
type MeteringModelClient struct {
	// Inner is the wrapped client.
	Inner model.Client

	// Meter is the metering client.
	Meter *Meter

	// ModelID is the fallback model name when the request carries none.
	ModelID string

	// ProviderName tags usage events; normalized via NormalizeProvider.
	ProviderName string
}

var _ model.Client = (*MeteringModelClient)(nil)

func (c *MeteringModelClient) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	customer, err := c.Meter.resolveCustomer(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.Inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	c.Meter.RecordUsageAsync(ctx, UsageInfo{
		Provider:     NormalizeProvider(c.ProviderName),
		Model:        c.resolveModel(req),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, customer)
	return resp, nil
}

func (c *MeteringModelClient) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	customer, err := c.Meter.resolveCustomer(ctx)
	if err != nil {
		return nil, err
	}
	streamer, err := c.Inner.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &meteringStreamer{
		inner:    streamer,
		meter:    c.Meter,
		ctx:      ctx,
		customer: customer,
		acc: UsageAccumulator{
			Provider: NormalizeProvider(c.ProviderName),
			Model:    c.resolveModel(req),
		},
	}, nil
}

// resolveModel returns the concrete model name from the request or falls
// back to the registered model ID.
func (c *MeteringModelClient) resolveModel(req *model.Request) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	return c.ModelID
}

// meteringStreamer wraps a model.Streamer: usage deltas accumulate on Recv
// and the meter events fire exactly once, on the terminal Recv error or on
// Close, whichever comes first. Partial usage, possibly zero, is still
// reported when the stream errors or is torn down early.
type meteringStreamer struct {
	inner    model.Streamer
	meter    *Meter
	ctx      context.Context
	customer string

	mu      sync.Mutex
	acc     UsageAccumulator
	emitted bool
}

var _ model.Streamer = (*meteringStreamer)(nil)

func (s *meteringStreamer) Recv() (model.Chunk, error) {
	chunk, err := s.inner.Recv()
	s.mu.Lock()
	if chunk.UsageDelta != nil {
		s.acc.InputTokens += chunk.UsageDelta.InputTokens
		s.acc.OutputTokens += chunk.UsageDelta.OutputTokens
	}
	s.mu.Unlock()
	if err != nil {
		s.emit()
	}
	return chunk, err
}

func (s *meteringStreamer) Close() error {
	err := s.inner.Close()
	s.emit()
	return err
}

func (s *meteringStreamer) Metadata() map[string]any {
	return s.inner.Metadata()
}

func (s *meteringStreamer) emit() {
	s.mu.Lock()
	if s.emitted {
		s.mu.Unlock()
		return
	}
	s.emitted = true
	info := s.acc.Usage()
	s.mu.Unlock()
	s.meter.RecordUsageAsync(s.ctx, info, s.customer)
}
