package tokenmeter

import "github.com/anthropics/anthropic-sdk-go"

// AnthropicSDKUsage converts a completed message from the official Anthropic
// SDK into canonical usage, for callers holding SDK types instead of wire
// bytes.
func AnthropicSDKUsage(msg *anthropic.Message) UsageInfo {
	info := UsageInfo{Provider: ProviderAnthropic}
	if msg == nil {
		return info
	}
	info.Model = string(msg.Model)
	info.InputTokens = int(msg.Usage.InputTokens)
	info.OutputTokens = int(msg.Usage.OutputTokens)
	return info
}

// AnthropicSDKStreamUsage merges the message_start usage with the final
// message_delta usage of one SDK stream. Cumulative input tokens on the
// delta, when reported, win over the message_start value.
func AnthropicSDKStreamUsage(model string, start anthropic.Usage, delta anthropic.MessageDeltaUsage) UsageInfo {
	info := UsageInfo{
		Provider:     ProviderAnthropic,
		Model:        model,
		InputTokens:  int(start.InputTokens),
		OutputTokens: int(delta.OutputTokens),
	}
	if delta.InputTokens > 0 {
		info.InputTokens = int(delta.InputTokens)
	}
	return info
}
