package auth

import (
	"context"
	"strings"
)

type contextKey string

const engineerKey contextKey = "engineer"

// EngineerHeader names the request header carrying the acting engineer.
const EngineerHeader = "X-Engineer"

// ContextWithEngineer returns a new context that carries the acting engineer.
func ContextWithEngineer(ctx context.Context, engineer string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, engineerKey, strings.TrimSpace(engineer))
}

// EngineerFromContext retrieves the acting engineer from the context, if any.
func EngineerFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	engineer, ok := ctx.Value(engineerKey).(string)
	if !ok || engineer == "" {
		return "", false
	}
	return engineer, true
}

// ResolveEngineer prefers the engineer carried by the request over the one
// named in the payload.
func ResolveEngineer(ctx context.Context, fallback string) string {
	if engineer, ok := EngineerFromContext(ctx); ok {
		return engineer
	}
	return strings.TrimSpace(fallback)
}
