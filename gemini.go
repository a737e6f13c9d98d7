package tokenmeter

import (
	"context"
	"encoding/json"
)

// GeminiUsageMetadata matches usageMetadata on Gemini-style responses.
type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

// GeminiRequest carries the request fields the meter reads.
type GeminiRequest struct {
	Model            string          `json:"model"`
	Contents         json.RawMessage `json:"contents,omitempty"`
	GenerationConfig json.RawMessage `json:"generationConfig,omitempty"`
}

// GeminiResponse is the wire shape of a generateContent response. Streaming
// chunks share the same shape; usage arrives on the response or final chunk.
type GeminiResponse struct {
	ModelVersion  string               `json:"modelVersion,omitempty"`
	Candidates    json.RawMessage      `json:"candidates,omitempty"`
	UsageMetadata *GeminiUsageMetadata `json:"usageMetadata,omitempty"`
}

// GeminiClient is the subset of a Gemini-style SDK surface the metered
// wrapper forwards to.
type GeminiClient interface {
	GenerateContent(ctx context.Context, req *GeminiRequest) (*GeminiResponse, error)
	GenerateContentStream(ctx context.Context, req *GeminiRequest) (Stream[*GeminiResponse], error)
}

// GeminiResponseUsage extracts canonical usage from a generateContent
// response. thoughtsTokenCount (reasoning tokens) folds into output tokens:
// reasoning tokens are billable output.
func GeminiResponseUsage(resp *GeminiResponse) UsageInfo {
	info := UsageInfo{Provider: ProviderGoogle}
	if resp == nil {
		return info
	}
	info.Model = resp.ModelVersion
	if um := resp.UsageMetadata; um != nil {
		info.InputTokens = um.PromptTokenCount
		info.OutputTokens = um.CandidatesTokenCount + um.ThoughtsTokenCount
	}
	return info
}

// ObserveGeminiChunk records usage signals from one streamed chunk. Gemini
// repeats usageMetadata on chunks as it becomes known; the last value wins.
func ObserveGeminiChunk(chunk *GeminiResponse, acc *UsageAccumulator) {
	if chunk == nil {
		return
	}
	acc.SetModel(chunk.ModelVersion)
	if um := chunk.UsageMetadata; um != nil {
		acc.InputTokens = um.PromptTokenCount
		acc.OutputTokens = um.CandidatesTokenCount + um.ThoughtsTokenCount
	}
}

// GeminiUsageFromJSON extracts usage from a raw generateContent response or
// chunk body.
func GeminiUsageFromJSON(body []byte) UsageInfo {
	var resp GeminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return UsageInfo{Provider: ProviderGoogle}
	}
	return GeminiResponseUsage(&resp)
}

// MeteredGemini wraps a Gemini-style client with token metering.
//
// Unlike the other wrappers, failed Gemini calls still emit a zero-usage
// event carrying the model and customer, so billing records every attempted
// call; the provider error propagates unchanged either way.
type MeteredGemini struct {
	// Inner is the wrapped client.
	Inner GeminiClient

	// Meter is the metering client.
	Meter *Meter

	// ProviderName overrides the provider tag on usage events.
	// Normalized; empty means "google".
	ProviderName string
}

func (c *MeteredGemini) provider() Provider {
	if c.ProviderName != "" {
		return NormalizeProvider(c.ProviderName)
	}
	return ProviderGoogle
}

// GenerateContent invokes the wrapped client, meters usage from the
// response, and returns the response unchanged. Errors are metered as
// zero usage before propagating.
func (c *MeteredGemini) GenerateContent(ctx context.Context, req *GeminiRequest) (*GeminiResponse, error) {
	model := ""
	if req != nil {
		model = req.Model
	}
	return meterCall(ctx, c.Meter,
		func(ctx context.Context) (*GeminiResponse, error) {
			return c.Inner.GenerateContent(ctx, req)
		},
		func(resp *GeminiResponse) UsageInfo {
			info := GeminiResponseUsage(resp)
			info.Provider = c.provider()
			if info.Model == "" {
				info.Model = model
			}
			return info
		},
		func(error) (UsageInfo, bool) {
			return UsageInfo{Provider: c.provider(), Model: model}, true
		})
}

// GenerateContentStream invokes the wrapped client and returns a
// pass-through stream that meters usage once it ends. A call that fails to
// open the stream is metered as zero usage before the error propagates.
func (c *MeteredGemini) GenerateContentStream(ctx context.Context, req *GeminiRequest) (Stream[*GeminiResponse], error) {
	customer, err := c.Meter.resolveCustomer(ctx)
	if err != nil {
		return nil, err
	}
	model := ""
	if req != nil {
		model = req.Model
	}
	inner, err := c.Inner.GenerateContentStream(ctx, req)
	if err != nil {
		c.Meter.RecordUsageAsync(ctx, UsageInfo{Provider: c.provider(), Model: model}, customer)
		return nil, err
	}
	return NewMeteredStream(ctx, c.Meter, customer, c.provider(), model, inner, ObserveGeminiChunk), nil
}
