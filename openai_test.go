package tokenmeter

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpenAIClient struct {
	resp   *OpenAIChatResponse
	stream Stream[*OpenAIChatChunk]
	err    error
	calls  int
}

func (f *fakeOpenAIClient) CreateChatCompletion(_ context.Context, _ *OpenAIChatRequest) (*OpenAIChatResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeOpenAIClient) CreateChatCompletionStream(_ context.Context, _ *OpenAIChatRequest) (Stream[*OpenAIChatChunk], error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func TestMeteredOpenAICompletion(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub)
	inner := &fakeOpenAIClient{resp: &OpenAIChatResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o-2024-08-06",
		Usage: &OpenAIUsage{PromptTokens: 12, CompletionTokens: 7, TotalTokens: 19},
	}}
	client := &MeteredOpenAI{Inner: inner, Meter: m}

	resp, err := client.CreateChatCompletion(context.Background(), &OpenAIChatRequest{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Same(t, inner.resp, resp)
	m.Flush()

	events := sub.Events()
	require.Len(t, events, 2)
	in := eventByType(t, events, "input")
	assert.Equal(t, "cus_default", in.payload["stripe_customer_id"])
	assert.Equal(t, "12", in.payload["value"])
	assert.Equal(t, "gpt-4o-2024-08-06", in.payload["model"])
	assert.Equal(t, "7", eventByType(t, events, "output").payload["value"])
}

func TestMeteredOpenAICompletionMissingUsage(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub)
	inner := &fakeOpenAIClient{resp: &OpenAIChatResponse{ID: "chatcmpl-2", Model: "gpt-4o"}}
	client := &MeteredOpenAI{Inner: inner, Meter: m}

	_, err := client.CreateChatCompletion(context.Background(), &OpenAIChatRequest{Model: "gpt-4o"})
	require.NoError(t, err)
	m.Flush()

	// Missing usage normalizes to zero, never an error or a skipped event.
	events := sub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "0", eventByType(t, events, "input").payload["value"])
	assert.Equal(t, "0", eventByType(t, events, "output").payload["value"])
}

func TestMeteredOpenAICompletionErrorSkipsMetering(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub)
	upstream := errors.New("rate limited")
	client := &MeteredOpenAI{Inner: &fakeOpenAIClient{err: upstream}, Meter: m}

	_, err := client.CreateChatCompletion(context.Background(), &OpenAIChatRequest{Model: "gpt-4o"})
	assert.ErrorIs(t, err, upstream)
	m.Flush()
	assert.Empty(t, sub.Events())
}

func TestMeteredOpenAIBillingFailureDoesNotSurface(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("stripe down")}
	m := newTestMeter(t, sub)
	inner := &fakeOpenAIClient{resp: &OpenAIChatResponse{
		Model: "gpt-4o",
		Usage: &OpenAIUsage{PromptTokens: 1, CompletionTokens: 1},
	}}
	client := &MeteredOpenAI{Inner: inner, Meter: m}

	resp, err := client.CreateChatCompletion(context.Background(), &OpenAIChatRequest{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Same(t, inner.resp, resp)
	m.Flush()
}

func TestMeteredOpenAICustomerOverride(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub)
	inner := &fakeOpenAIClient{resp: &OpenAIChatResponse{
		Model: "gpt-4o",
		Usage: &OpenAIUsage{PromptTokens: 3, CompletionTokens: 4},
	}}
	client := &MeteredOpenAI{Inner: inner, Meter: m}

	ctx := WithCustomer(context.Background(), "cus_override")
	_, err := client.CreateChatCompletion(ctx, &OpenAIChatRequest{Model: "gpt-4o"})
	require.NoError(t, err)
	m.Flush()

	events := sub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "cus_override", events[0].payload["stripe_customer_id"])
	assert.Equal(t, "cus_override", events[1].payload["stripe_customer_id"])
}

func TestMeteredOpenAIMissingCustomerFailsBeforeCall(t *testing.T) {
	clearEnv(t)
	sub := &fakeSubmitter{}
	m, err := NewMeter(WithAPIKey("sk_test_123"), WithEventSubmitter(sub))
	require.NoError(t, err)
	inner := &fakeOpenAIClient{resp: &OpenAIChatResponse{Model: "gpt-4o"}}
	client := &MeteredOpenAI{Inner: inner, Meter: m}

	_, err = client.CreateChatCompletion(context.Background(), &OpenAIChatRequest{Model: "gpt-4o"})
	require.Error(t, err)

	var merr *MeterError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, ErrorKindConfig, merr.Kind)
	assert.Zero(t, inner.calls)
}

func TestMeteredOpenAIStreamUsageInFinalChunk(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub)
	chunks := []*OpenAIChatChunk{
		{ID: "c-1", Model: "gpt-4o"},
		{ID: "c-2", Model: "gpt-4o"},
		{ID: "c-3", Model: "gpt-4o", Usage: &OpenAIUsage{PromptTokens: 10, CompletionTokens: 5}},
	}
	inner := &fakeOpenAIClient{stream: &scriptedStream[*OpenAIChatChunk]{chunks: chunks}}
	client := &MeteredOpenAI{Inner: inner, Meter: m}

	s, err := client.CreateChatCompletionStream(context.Background(),
		&OpenAIChatRequest{Model: "gpt-4o", Stream: true, StreamOptions: &OpenAIStreamOptions{IncludeUsage: true}})
	require.NoError(t, err)

	got, err := drain(s)
	assert.ErrorIs(t, err, io.EOF)
	require.Len(t, got, 3)
	for i := range chunks {
		assert.Same(t, chunks[i], got[i])
	}
	require.NoError(t, s.Close())
	m.Flush()

	events := sub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "10", eventByType(t, events, "input").payload["value"])
	assert.Equal(t, "5", eventByType(t, events, "output").payload["value"])
}

func TestMeteredOpenAIStreamWithoutUsageMetersZero(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestMeter(t, sub)
	inner := &fakeOpenAIClient{stream: &scriptedStream[*OpenAIChatChunk]{chunks: []*OpenAIChatChunk{
		{ID: "c-1", Model: "gpt-4o"},
		{ID: "c-2", Model: "gpt-4o"},
	}}}
	client := &MeteredOpenAI{Inner: inner, Meter: m}

	// Caller did not request stream_options.include_usage: no usage chunk
	// ever arrives and the call meters zero.
	s, err := client.CreateChatCompletionStream(context.Background(), &OpenAIChatRequest{Model: "gpt-4o", Stream: true})
	require.NoError(t, err)
	_, err = drain(s)
	assert.ErrorIs(t, err, io.EOF)
	m.Flush()

	events := sub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "0", eventByType(t, events, "input").payload["value"])
	assert.Equal(t, "0", eventByType(t, events, "output").payload["value"])
}

func TestMeteredOpenAIProviderOverride(t *testing.T) {
	assert.Equal(t, ProviderOpenAI, (&MeteredOpenAI{}).provider())
	assert.Equal(t, ProviderAzure, (&MeteredOpenAI{ProviderName: "Azure OpenAI"}).provider())
	assert.Equal(t, ProviderGroq, (&MeteredOpenAI{ProviderName: "groq"}).provider())
}

func TestOpenAIUsageFromJSON(t *testing.T) {
	body := []byte(`{"id":"chatcmpl-9","model":"gpt-4o-mini","usage":{"prompt_tokens":42,"completion_tokens":17,"total_tokens":59}}`)
	info := OpenAIUsageFromJSON(body)
	assert.Equal(t, ProviderOpenAI, info.Provider)
	assert.Equal(t, "gpt-4o-mini", info.Model)
	assert.Equal(t, 42, info.InputTokens)
	assert.Equal(t, 17, info.OutputTokens)
	assert.Equal(t, 59, info.TotalTokens())

	// Malformed bodies normalize to zero.
	assert.Equal(t, UsageInfo{Provider: ProviderOpenAI}, OpenAIUsageFromJSON([]byte("not json")))
}
