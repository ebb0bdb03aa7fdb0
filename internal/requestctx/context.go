// Package requestctx carries request-scoped correlation values (request id,
// client address, user agent, acting identity) through context.Context so the
// logger and the audit trail can pick them up without threading parameters.
package requestctx

import (
	"context"
	"strings"
)

type key int

const (
	requestIDKey key = iota
	ipAddressKey
	userAgentKey
	actorKey
)

// Actor names who is performing the request, for audit attribution.
type Actor struct {
	Type string // "admin", "customer" or "system"
	ID   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipAddressKey, strings.TrimSpace(ip))
}

func IPAddress(ctx context.Context) string {
	v, _ := ctx.Value(ipAddressKey).(string)
	return v
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey, ua)
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey).(string)
	return v
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the acting identity, defaulting to the system actor when
// the request carries none (startup tasks, schedulers).
func ActorFrom(ctx context.Context) Actor {
	if v, ok := ctx.Value(actorKey).(Actor); ok && v.Type != "" {
		return v
	}
	return Actor{Type: "system", ID: "SYSTEM"}
}
