package tokenmeter

import (
	"context"

	"goa.design/goa-ai/runtime/agent/stream"
)

// Compile-time assertion that MeteringSink implements stream.Sink.
var _ stream.Sink = (*MeteringSink)(nil)

// MeteringSink wraps a stream.Sink and bills the usage events flowing
// through it. It is the alternate integration point for runtimes where the
// model client cannot be wrapped directly; do not combine it with
// MeteringPlanner on the same traffic or usage is billed twice.
type MeteringSink struct {
	// Inner is the wrapped sink.
	Inner stream.Sink

	// Meter is the metering client.
	Meter *Meter

	// ProviderName tags usage events; normalized via NormalizeProvider.
	ProviderName string
}

func (s *MeteringSink) Send(ctx context.Context, event stream.Event) error {
	// Skip metering if Meter is not configured
	if s.Meter == nil {
		return s.Inner.Send(ctx, event)
	}

	if e, ok := event.(stream.Usage); ok {
		customer, err := s.Meter.resolveCustomer(ctx)
		if err != nil {
			s.Meter.logger.Warn("usage event not billed (run=%s): %v", e.RunID(), err)
		} else {
			s.Meter.RecordUsageAsync(ctx, UsageInfo{
				Provider:     NormalizeProvider(s.ProviderName),
				Model:        e.Data.Model,
				InputTokens:  e.Data.InputTokens,
				OutputTokens: e.Data.OutputTokens,
			}, customer)
		}
	}

	return s.Inner.Send(ctx, event)
}

func (s *MeteringSink) Close(ctx context.Context) error {
	return s.Inner.Close(ctx)
}
