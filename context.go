package tokenmeter

import "context"

type customerKey struct{}

// WithCustomer returns a context carrying a per-call billing customer ID.
// It overrides the Meter's configured default for every call made with the
// returned context, so multi-tenant applications can attribute usage
// per request instead of per client.
func WithCustomer(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, customerKey{}, customerID)
}

// CustomerFromContext retrieves the per-call customer ID, if any.
func CustomerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(customerKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
