package tokenmeter

import (
	"context"
	"encoding/json"
)

// Anthropic stream event types the meter reacts to.
const (
	anthropicMessageStart = "message_start"
	anthropicMessageDelta = "message_delta"
)

// AnthropicUsage matches the usage object on Anthropic-style messages.
type AnthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// AnthropicDeltaUsage matches the usage object on message_delta events.
// Anthropic reports final output tokens here, not on message_start.
type AnthropicDeltaUsage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicMessageRequest carries the request fields the meter reads.
type AnthropicMessageRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	System    json.RawMessage `json:"system,omitempty"`
	Messages  json.RawMessage `json:"messages,omitempty"`
	Stream    bool            `json:"stream,omitempty"`
}

// AnthropicMessage is the wire shape of a non-streaming messages response.
// Non-streaming responses carry one usage object with both token counts.
type AnthropicMessage struct {
	ID         string          `json:"id"`
	Model      string          `json:"model"`
	Content    json.RawMessage `json:"content,omitempty"`
	StopReason string          `json:"stop_reason,omitempty"`
	Usage      *AnthropicUsage `json:"usage,omitempty"`
}

// AnthropicStreamEvent is the wire shape of one Anthropic streaming event.
// Usage is split across two lifecycle events: message_start carries input
// tokens under Message.Usage, message_delta carries output tokens under
// Usage. The meter merges across both; no single combined object exists.
type AnthropicStreamEvent struct {
	Type    string               `json:"type"`
	Message *AnthropicMessage    `json:"message,omitempty"`
	Index   int                  `json:"index,omitempty"`
	Delta   json.RawMessage      `json:"delta,omitempty"`
	Usage   *AnthropicDeltaUsage `json:"usage,omitempty"`
}

// AnthropicMessagesClient is the subset of an Anthropic-style SDK surface
// the metered wrapper forwards to.
type AnthropicMessagesClient interface {
	CreateMessage(ctx context.Context, req *AnthropicMessageRequest) (*AnthropicMessage, error)
	CreateMessageStream(ctx context.Context, req *AnthropicMessageRequest) (Stream[*AnthropicStreamEvent], error)
}

// AnthropicResponseUsage extracts canonical usage from a messages response.
func AnthropicResponseUsage(msg *AnthropicMessage) UsageInfo {
	info := UsageInfo{Provider: ProviderAnthropic}
	if msg == nil {
		return info
	}
	info.Model = msg.Model
	if msg.Usage != nil {
		info.InputTokens = msg.Usage.InputTokens
		info.OutputTokens = msg.Usage.OutputTokens
	}
	return info
}

// ObserveAnthropicEvent merges usage signals across the stream lifecycle:
// input tokens from message_start, output tokens from message_delta. A
// stream that errors between the two emits whatever half was observed.
func ObserveAnthropicEvent(ev *AnthropicStreamEvent, acc *UsageAccumulator) {
	if ev == nil {
		return
	}
	switch ev.Type {
	case anthropicMessageStart:
		if ev.Message == nil {
			return
		}
		acc.SetModel(ev.Message.Model)
		if ev.Message.Usage != nil {
			acc.InputTokens = ev.Message.Usage.InputTokens
			if ev.Message.Usage.OutputTokens > 0 {
				acc.OutputTokens = ev.Message.Usage.OutputTokens
			}
		}
	case anthropicMessageDelta:
		if ev.Usage == nil {
			return
		}
		// Some deployments report cumulative input tokens on the delta;
		// prefer them when present.
		if ev.Usage.InputTokens > 0 {
			acc.InputTokens = ev.Usage.InputTokens
		}
		acc.OutputTokens = ev.Usage.OutputTokens
	}
}

// AnthropicUsageFromJSON extracts usage from a raw messages response body.
func AnthropicUsageFromJSON(body []byte) UsageInfo {
	var msg AnthropicMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return UsageInfo{Provider: ProviderAnthropic}
	}
	return AnthropicResponseUsage(&msg)
}

// MeteredAnthropic wraps an Anthropic-style messages client with token
// metering.
type MeteredAnthropic struct {
	// Inner is the wrapped client.
	Inner AnthropicMessagesClient

	// Meter is the metering client.
	Meter *Meter

	// ProviderName overrides the provider tag on usage events (Bedrock- or
	// Vertex-hosted Claude). Normalized; empty means "anthropic".
	ProviderName string
}

func (c *MeteredAnthropic) provider() Provider {
	if c.ProviderName != "" {
		return NormalizeProvider(c.ProviderName)
	}
	return ProviderAnthropic
}

// CreateMessage invokes the wrapped client, meters usage from the response,
// and returns the response unchanged.
func (c *MeteredAnthropic) CreateMessage(ctx context.Context, req *AnthropicMessageRequest) (*AnthropicMessage, error) {
	return MeterCall(ctx, c.Meter,
		func(ctx context.Context) (*AnthropicMessage, error) {
			return c.Inner.CreateMessage(ctx, req)
		},
		func(msg *AnthropicMessage) UsageInfo {
			info := AnthropicResponseUsage(msg)
			info.Provider = c.provider()
			if info.Model == "" && req != nil {
				info.Model = req.Model
			}
			return info
		})
}

// CreateMessageStream invokes the wrapped client and returns a pass-through
// event stream that meters merged usage once it ends.
func (c *MeteredAnthropic) CreateMessageStream(ctx context.Context, req *AnthropicMessageRequest) (Stream[*AnthropicStreamEvent], error) {
	model := ""
	if req != nil {
		model = req.Model
	}
	return MeterStream(ctx, c.Meter, c.provider(), model,
		func(ctx context.Context) (Stream[*AnthropicStreamEvent], error) {
			return c.Inner.CreateMessageStream(ctx, req)
		},
		ObserveAnthropicEvent)
}
