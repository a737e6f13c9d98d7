package tokenmeter

import (
	"context"
	"encoding/json"
)

// OpenAIUsage matches the usage object of OpenAI-style chat responses.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIStreamOptions mirrors stream_options on OpenAI-style requests.
// The wrapper never sets IncludeUsage itself: whether streamed usage is
// reported at all is the caller's contract with the provider.
type OpenAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// OpenAIChatRequest carries the request fields the meter reads. Message
// content is opaque to this layer and passes through as raw JSON.
type OpenAIChatRequest struct {
	Model         string               `json:"model"`
	Messages      json.RawMessage      `json:"messages,omitempty"`
	Stream        bool                 `json:"stream,omitempty"`
	StreamOptions *OpenAIStreamOptions `json:"stream_options,omitempty"`
}

// OpenAIChatResponse is the wire shape of a non-streaming chat completion.
type OpenAIChatResponse struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Choices json.RawMessage `json:"choices,omitempty"`
	Usage   *OpenAIUsage    `json:"usage,omitempty"`
}

// OpenAIChatChunk is the wire shape of one streamed chat completion chunk.
// Usage, when requested upstream, arrives on a single chunk, typically the
// terminal one.
type OpenAIChatChunk struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Choices json.RawMessage `json:"choices,omitempty"`
	Usage   *OpenAIUsage    `json:"usage,omitempty"`
}

// OpenAIChatClient is the subset of an OpenAI-style SDK surface the metered
// wrapper forwards to. Any concrete SDK adapts with a small shim.
type OpenAIChatClient interface {
	CreateChatCompletion(ctx context.Context, req *OpenAIChatRequest) (*OpenAIChatResponse, error)
	CreateChatCompletionStream(ctx context.Context, req *OpenAIChatRequest) (Stream[*OpenAIChatChunk], error)
}

// OpenAIResponseUsage extracts canonical usage from a chat response.
// A missing usage object normalizes to zero, never an error.
func OpenAIResponseUsage(resp *OpenAIChatResponse) UsageInfo {
	info := UsageInfo{Provider: ProviderOpenAI}
	if resp == nil {
		return info
	}
	info.Model = resp.Model
	if resp.Usage != nil {
		info.InputTokens = resp.Usage.PromptTokens
		info.OutputTokens = resp.Usage.CompletionTokens
	}
	return info
}

// ObserveOpenAIChunk records usage signals from one streamed chunk. Streams
// where the caller did not request stream_options.include_usage carry no
// usage chunk and meter zero; that is expected, not a defect.
func ObserveOpenAIChunk(chunk *OpenAIChatChunk, acc *UsageAccumulator) {
	if chunk == nil {
		return
	}
	acc.SetModel(chunk.Model)
	if chunk.Usage != nil {
		acc.InputTokens = chunk.Usage.PromptTokens
		acc.OutputTokens = chunk.Usage.CompletionTokens
	}
}

// OpenAIUsageFromJSON extracts usage from a raw OpenAI-style response or
// stream chunk body, for gateway-style callers holding wire bytes.
func OpenAIUsageFromJSON(body []byte) UsageInfo {
	var resp OpenAIChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return UsageInfo{Provider: ProviderOpenAI}
	}
	return OpenAIResponseUsage(&resp)
}

// MeteredOpenAI wraps an OpenAI-style chat client with token metering.
type MeteredOpenAI struct {
	// Inner is the wrapped client.
	Inner OpenAIChatClient

	// Meter is the metering client.
	Meter *Meter

	// ProviderName overrides the provider tag on usage events, for
	// OpenAI-compatible hosts (Azure deployments, Together, Groq).
	// Normalized via NormalizeProvider; empty means "openai".
	ProviderName string
}

func (c *MeteredOpenAI) provider() Provider {
	if c.ProviderName != "" {
		return NormalizeProvider(c.ProviderName)
	}
	return ProviderOpenAI
}

// CreateChatCompletion invokes the wrapped client, meters usage from the
// response, and returns the response unchanged.
func (c *MeteredOpenAI) CreateChatCompletion(ctx context.Context, req *OpenAIChatRequest) (*OpenAIChatResponse, error) {
	return MeterCall(ctx, c.Meter,
		func(ctx context.Context) (*OpenAIChatResponse, error) {
			return c.Inner.CreateChatCompletion(ctx, req)
		},
		func(resp *OpenAIChatResponse) UsageInfo {
			info := OpenAIResponseUsage(resp)
			info.Provider = c.provider()
			if info.Model == "" && req != nil {
				info.Model = req.Model
			}
			return info
		})
}

// CreateChatCompletionStream invokes the wrapped client and returns a
// pass-through stream that meters usage once it ends.
func (c *MeteredOpenAI) CreateChatCompletionStream(ctx context.Context, req *OpenAIChatRequest) (Stream[*OpenAIChatChunk], error) {
	model := ""
	if req != nil {
		model = req.Model
	}
	return MeterStream(ctx, c.Meter, c.provider(), model,
		func(ctx context.Context) (Stream[*OpenAIChatChunk], error) {
			return c.Inner.CreateChatCompletionStream(ctx, req)
		},
		ObserveOpenAIChunk)
}
