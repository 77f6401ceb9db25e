package scimctx

import (
	"context"
	"testing"
)

func TestTenant_RoundTrips(t *testing.T) {
	ctx := WithTenant(context.Background(), TenantContext{TenantID: "t1", ClientID: "c1"})

	tc, ok := Tenant(ctx)
	if !ok || tc.TenantID != "t1" {
		t.Errorf("expected tenant t1, got %+v ok=%v", tc, ok)
	}
}

func TestRequireTenant_ErrorsWhenAbsent(t *testing.T) {
	if _, err := RequireTenant(context.Background()); err == nil {
		t.Error("expected error for missing tenant context")
	}
}

func TestRequireTenant_ErrorsOnEmptyID(t *testing.T) {
	ctx := WithTenant(context.Background(), TenantContext{})

	if _, err := RequireTenant(ctx); err == nil {
		t.Error("expected error for empty tenant id")
	}
}

func TestRequest_RoundTrips(t *testing.T) {
	ctx := WithRequest(context.Background(), RequestContext{RequestID: "r1"})

	rc, ok := Request(ctx)
	if !ok || rc.RequestID != "r1" {
		t.Errorf("expected request r1, got %+v ok=%v", rc, ok)
	}
}

func TestRequireRequest_ErrorsWhenAbsent(t *testing.T) {
	if _, err := RequireRequest(context.Background()); err == nil {
		t.Error("expected error for missing request context")
	}
}
