package tokenmeter

import "strings"

// Provider is the canonical tag identifying where a model is hosted.
type Provider string

const (
	ProviderOpenAI      Provider = "openai"
	ProviderAnthropic   Provider = "anthropic"
	ProviderGoogle      Provider = "google"
	ProviderAzure       Provider = "azure"
	ProviderBedrock     Provider = "bedrock"
	ProviderHuggingFace Provider = "huggingface"
	ProviderTogether    Provider = "together"
	ProviderGroq        Provider = "groq"
)

// providerMatches is checked in order. Identifiers can contain several vendor
// substrings (an Azure-hosted OpenAI deployment name contains "openai"), and
// the hosting platform wins, so azure and bedrock are matched first.
var providerMatches = []struct {
	substr string
	tag    Provider
}{
	{"azure", ProviderAzure},
	{"bedrock", ProviderBedrock},
	{"huggingface", ProviderHuggingFace},
	{"together", ProviderTogether},
	{"anthropic", ProviderAnthropic},
	{"google", ProviderGoogle},
	{"gemini", ProviderGoogle},
	{"groq", ProviderGroq},
	{"openai", ProviderOpenAI},
}

// NormalizeProvider maps a free-text provider identifier to a canonical tag
// by case-insensitive substring match. Unmatched identifiers pass through
// lowercased.
func NormalizeProvider(raw string) Provider {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, m := range providerMatches {
		if strings.Contains(s, m.substr) {
			return m.tag
		}
	}
	return Provider(s)
}
