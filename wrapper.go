package tokenmeter

import "context"

// MeterCall wraps a single request/response provider call: it invokes call,
// extracts canonical usage from the response, emits the meter events, and
// returns the response unchanged. On failure the provider error propagates
// unchanged and no usage is emitted (no response exists to read usage from).
//
// The customer is resolved before call runs, so a misconfigured billing
// customer fails without touching the provider.
func MeterCall[R any](ctx context.Context, m *Meter, call func(context.Context) (R, error), usage func(R) UsageInfo) (R, error) {
	return meterCall(ctx, m, call, usage, nil)
}

// meterCall is the shared non-streaming wrapper. errUsage, when non-nil,
// lets a provider adapter report usage for failed calls (the Gemini
// adapter bills zero-usage events for errors); the error still propagates.
func meterCall[R any](ctx context.Context, m *Meter, call func(context.Context) (R, error), usage func(R) UsageInfo, errUsage func(error) (UsageInfo, bool)) (R, error) {
	var zero R
	customer, err := m.resolveCustomer(ctx)
	if err != nil {
		return zero, err
	}
	resp, err := call(ctx)
	if err != nil {
		if errUsage != nil {
			if info, ok := errUsage(err); ok {
				m.RecordUsageAsync(ctx, info, customer)
			}
		}
		return zero, err
	}
	m.RecordUsageAsync(ctx, usage(resp), customer)
	return resp, nil
}
