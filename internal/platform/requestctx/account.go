// Package requestctx carries request-scoped identity through handler chains.
package requestctx

import "context"

// accountIDContextKey is the context key for the authenticated account.
type accountIDContextKey struct{}

// WithAccountID stores an account identifier in context.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, accountIDContextKey{}, accountID)
}

// AccountIDFromContext returns the account identifier stored in context.
func AccountIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(accountIDContextKey{}).(string)
	return value
}
