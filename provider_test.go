package tokenmeter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProvider(t *testing.T) {
	cases := []struct {
		raw  string
		want Provider
	}{
		{"openai", ProviderOpenAI},
		{"OpenAI", ProviderOpenAI},
		{"  OpenAI  ", ProviderOpenAI},
		{"anthropic", ProviderAnthropic},
		{"Anthropic Claude", ProviderAnthropic},
		{"google", ProviderGoogle},
		{"gemini-pro", ProviderGoogle},
		{"Gemini", ProviderGoogle},
		// Hosting platform wins over the vendor substring.
		{"azure-openai-deployment", ProviderAzure},
		{"AWS Bedrock anthropic", ProviderBedrock},
		{"huggingface-inference", ProviderHuggingFace},
		{"Together AI", ProviderTogether},
		{"groq", ProviderGroq},
		// Unknown identifiers pass through lowercased.
		{"My-Custom-LLM", Provider("my-custom-llm")},
		{"", Provider("")},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeProvider(tc.raw))
		})
	}
}

func TestNormalizeProviderIdempotent(t *testing.T) {
	for _, raw := range []string{"Azure OpenAI", "gemini-1.5-flash", "custom"} {
		once := NormalizeProvider(raw)
		assert.Equal(t, once, NormalizeProvider(string(once)))
	}
}
