// Package tokenmeter provides usage-metering wrappers for AI provider
// clients.
//
// The wrappers transparently proxy chat/completion calls, streaming and
// non-streaming, extract token usage from the provider's response or stream,
// and forward the counts to Stripe billing meter events. Two events are
// submitted per logical call, one for input tokens and one for output tokens,
// each carrying the billing customer, the stringified token count, the model,
// and a token_type discriminator. Metering is best-effort telemetry: billing
// failures are logged and never surface to the caller, and the wrapped
// response or stream is returned to the caller unchanged.
//
// Three provider wire shapes ship out of the box (OpenAI-style chat,
// Anthropic-style messages, Gemini-style generateContent), plus a goa-ai
// model.Client adapter for agent frameworks. Any other client can be metered
// through the generic MeterCall and NewMeteredStream wrappers.
//
// Usage:
//
//	meter, err := tokenmeter.NewMeter(
//	    tokenmeter.WithAPIKey(os.Getenv("STRIPE_SECRET_KEY")),
//	    tokenmeter.WithCustomerID("cus_123"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	defer meter.Flush()
//
//	client := &tokenmeter.MeteredOpenAI{Inner: myOpenAIClient, Meter: meter}
//	resp, err := client.CreateChatCompletion(ctx, req)
//
//	// Per-call customer override:
//	resp, err = client.CreateChatCompletion(tokenmeter.WithCustomer(ctx, "cus_456"), req)
//
// For goa-ai agents, wrap either the model client (via MeteringPlanner) or
// the event sink (via MeteringSink), not both, or usage is billed twice.
package tokenmeter
