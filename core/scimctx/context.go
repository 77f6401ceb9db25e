// Package scimctx propagates per-request tenant and correlation
// information through context.Context (spec §4.6). It defines no
// transport binding: HTTP handlers, message consumers, or direct
// in-process callers attach a TenantContext (WithTenant), which every
// core/provider entry point requires, and optionally a RequestContext
// (WithRequest) before calling into core/provider.
package scimctx

import (
	"context"

	"github.com/xraph/scimcore/internal/scimerr"
)

type contextKey int

const (
	tenantContextKey contextKey = iota
	requestContextKey
)

// TenantContext identifies the tenant (and, optionally, the calling SCIM
// client) a request is scoped to. The storage substrate uses TenantID to
// partition all state (spec §4.4 invariant: no operation may read or
// write another tenant's data).
type TenantContext struct {
	TenantID string
	ClientID string
}

// RequestContext carries per-request identifiers that are not part of
// tenant scoping but are useful for logging and idempotency.
type RequestContext struct {
	RequestID string
	Tenant    *TenantContext
}

// WithTenant attaches tc to ctx.
func WithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// Tenant returns the TenantContext attached to ctx, if any.
func Tenant(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(tenantContextKey).(TenantContext)

	return tc, ok
}

// RequireTenant returns the TenantContext attached to ctx, or an
// *scimerr.Error if none is present. Every core/provider entry point
// calls this before touching storage.
func RequireTenant(ctx context.Context) (TenantContext, error) {
	tc, ok := Tenant(ctx)
	if !ok {
		return TenantContext{}, scimerr.InvalidRequest("no tenant context on request")
	}

	if tc.TenantID == "" {
		return TenantContext{}, scimerr.InvalidRequest("tenant context has empty tenant id")
	}

	return tc, nil
}

// WithRequest attaches rc to ctx.
func WithRequest(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// Request returns the RequestContext attached to ctx, if any.
func Request(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(RequestContext)

	return rc, ok
}

// RequireRequest returns the RequestContext attached to ctx, or an
// *scimerr.Error if none is present.
func RequireRequest(ctx context.Context) (RequestContext, error) {
	rc, ok := Request(ctx)
	if !ok {
		return RequestContext{}, scimerr.InvalidRequest("no request context on request")
	}

	return rc, nil
}
