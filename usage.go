package tokenmeter

// UsageInfo is the canonical usage record for one logical provider call,
// independent of the provider's wire format. Constructed once per call and
// consumed exactly once by the emitter.
type UsageInfo struct {
	Provider     Provider
	Model        string
	InputTokens  int
	OutputTokens int
}

// TotalTokens returns the combined input and output count.
func (u UsageInfo) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// UsageAccumulator collects usage signals observed on one in-flight stream.
// One accumulator per stream; never shared across calls.
type UsageAccumulator struct {
	Provider     Provider
	Model        string
	InputTokens  int
	OutputTokens int
}

// SetModel records the model name if the chunk carried one.
func (a *UsageAccumulator) SetModel(model string) {
	if model != "" {
		a.Model = model
	}
}

// Usage snapshots the accumulated state as a canonical usage record.
func (a *UsageAccumulator) Usage() UsageInfo {
	return UsageInfo{
		Provider:     a.Provider,
		Model:        a.Model,
		InputTokens:  a.InputTokens,
		OutputTokens: a.OutputTokens,
	}
}
