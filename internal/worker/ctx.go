package worker

import (
	"context"
)

type ctxKey string

const passIDKey ctxKey = "worker_pass_id"

// WithPassID stores the id of the current import pass on the context.
func WithPassID(ctx context.Context, passID string) context.Context {
	if passID == "" {
		return ctx
	}
	return context.WithValue(ctx, passIDKey, passID)
}

// PassID reads the pass id from context.
func PassID(ctx context.Context) string {
	v := ctx.Value(passIDKey)
	s, _ := v.(string)
	return s
}
