// Package shared holds request-context helpers, JSON decoding and response
// writers used by the handlers and middleware.
package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// ContextKey namespaces values stored in request contexts.
type ContextKey string

const (
	// PrincipalContextKey holds the authenticated caller.
	PrincipalContextKey ContextKey = "principal"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of random bytes in a trace ID (32 hex characters).
	TraceIDLength = 16
)

// PrincipalKind says how a caller authenticated.
type PrincipalKind string

// Principal kinds
const (
	PrincipalIdentity PrincipalKind = "identity"
	PrincipalService  PrincipalKind = "service"
)

// Principal is the authenticated caller of a request. IdentityID is set for
// bearer-token callers; Name is set for service tokens.
type Principal struct {
	Kind       PrincipalKind
	IdentityID uuid.UUID
	Name       string
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFrom returns the caller stored by the auth middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(Principal)
	return p, ok
}

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

var randRead = rand.Read

// generateTraceID returns 32 hex characters. If crypto/rand fails it falls
// back to a random UUID, which is never a static value.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	if n, err := randRead(b); err != nil || n != TraceIDLength {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(b)
}
