package tokenmeter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type submittedEvent struct {
	name    string
	payload map[string]string
}

// fakeSubmitter captures submitted meter events, or fails every submission
// when err is set.
type fakeSubmitter struct {
	mu     sync.Mutex
	err    error
	events []submittedEvent
}

func (f *fakeSubmitter) Submit(_ context.Context, name string, payload map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	p := make(map[string]string, len(payload))
	for k, v := range payload {
		p[k] = v
	}
	f.events = append(f.events, submittedEvent{name: name, payload: p})
	return nil
}

func (f *fakeSubmitter) Events() []submittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submittedEvent(nil), f.events...)
}

func newTestMeter(t *testing.T, sub EventSubmitter, opts ...Option) *Meter {
	t.Helper()
	all := append([]Option{
		WithAPIKey("sk_test_123"),
		WithCustomerID("cus_default"),
		WithEventSubmitter(sub),
		WithLogger(zap.NewNop()),
	}, opts...)
	m, err := NewMeter(all...)
	require.NoError(t, err)
	return m
}

// eventByType returns the single captured event with the given token_type.
func eventByType(t *testing.T, events []submittedEvent, tokenType string) submittedEvent {
	t.Helper()
	var found []submittedEvent
	for _, ev := range events {
		if ev.payload["token_type"] == tokenType {
			found = append(found, ev)
		}
	}
	require.Len(t, found, 1, "expected exactly one %s event", tokenType)
	return found[0]
}

func TestRecordUsageAsyncSubmitsTwoEvents(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub)

	m.RecordUsageAsync(context.Background(), UsageInfo{
		Provider:     ProviderOpenAI,
		Model:        "gpt-4o",
		InputTokens:  12,
		OutputTokens: 7,
	}, "cus_abc")
	m.Flush()

	events := sub.Events()
	require.Len(t, events, 2)

	in := eventByType(t, events, "input")
	assert.Equal(t, "token_meter", in.name)
	assert.Equal(t, "cus_abc", in.payload["stripe_customer_id"])
	assert.Equal(t, "12", in.payload["value"])
	assert.Equal(t, "gpt-4o", in.payload["model"])

	out := eventByType(t, events, "output")
	assert.Equal(t, "7", out.payload["value"])
	assert.Equal(t, "gpt-4o", out.payload["model"])
}

func TestRecordUsageAsyncZeroUsageStillSubmits(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub)

	m.RecordUsageAsync(context.Background(), UsageInfo{Provider: ProviderAnthropic}, "cus_abc")
	m.Flush()

	events := sub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "0", eventByType(t, events, "input").payload["value"])
	assert.Equal(t, "0", eventByType(t, events, "output").payload["value"])
	// No model attached when none is known.
	_, hasModel := events[0].payload["model"]
	assert.False(t, hasModel)
}

func TestRecordUsageAsyncEventNameOverride(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub, WithEventName("ai_tokens"))

	m.RecordUsageAsync(context.Background(), UsageInfo{InputTokens: 1, OutputTokens: 2}, "cus_abc")
	m.Flush()

	events := sub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "ai_tokens", events[0].name)
	assert.Equal(t, "ai_tokens", events[1].name)
}

func TestRecordUsageAsyncSubmissionFailureIsSwallowed(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("billing down")}
	m := newTestMeter(t, sub)

	// Must not panic and must not block.
	m.RecordUsageAsync(context.Background(), UsageInfo{InputTokens: 5, OutputTokens: 5}, "cus_abc")
	m.Flush()

	assert.Empty(t, sub.Events())
}
