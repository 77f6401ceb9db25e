package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/scimcore/core/provider"
	"github.com/xraph/scimcore/core/schemaregistry"
	"github.com/xraph/scimcore/core/scimctx"
	"github.com/xraph/scimcore/core/storage/memory"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	registry, err := schemaregistry.New()
	require.NoError(t, err)

	store := memory.New()
	p := provider.New(registry, store)

	require.NoError(t, p.Register("User", provider.ResourceTypeConfig{
		BaseSchemaURI: "urn:ietf:params:scim:schemas:core:2.0:User",
		AllowedOperations: []provider.Capability{
			provider.CapabilityCreate, provider.CapabilityRead, provider.CapabilityUpdate,
			provider.CapabilityDelete, provider.CapabilityPatch, provider.CapabilityList, provider.CapabilitySearch,
		},
	}))

	return New(p, registry)
}

func TestHandle_Create_StripsClientSuppliedID(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), OperationRequest{
		Operation:    Create,
		ResourceType: "User",
		TenantContext: &scimctx.TenantContext{TenantID: "T1"},
		Data:         map[string]any{"id": "client-chosen", "userName": "alice"},
	})

	require.True(t, resp.Success)
	body := resp.Data.(map[string]any)
	assert.NotEqual(t, "client-chosen", body["id"])
	assert.NotEmpty(t, resp.Metadata.ResourceID)
	assert.Equal(t, "T1", resp.Metadata.TenantID)
}

func TestHandle_Get_MissingResourceYieldsResourceNotFound(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), OperationRequest{
		Operation:     Get,
		ResourceType:  "User",
		ResourceID:    "nope",
		TenantContext: &scimctx.TenantContext{TenantID: "T1"},
	})

	require.False(t, resp.Success)
	assert.Equal(t, "RESOURCE_NOT_FOUND", resp.ErrorCode)
}

func TestHandle_MissingResourceType_IsInvalidRequest(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), OperationRequest{Operation: Create})

	require.False(t, resp.Success)
	assert.Equal(t, "INVALID_REQUEST", resp.ErrorCode)
}

func TestHandle_MissingOperation_IsInvalidRequest(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), OperationRequest{})

	require.False(t, resp.Success)
	assert.Equal(t, "INVALID_REQUEST", resp.ErrorCode)
}

func TestHandle_PatchFilterInPath(t *testing.T) {
	h := newTestHandler(t)
	tenant := &scimctx.TenantContext{TenantID: "T1"}

	created := h.Handle(context.Background(), OperationRequest{
		Operation:     Create,
		ResourceType:  "User",
		TenantContext: tenant,
		Data: map[string]any{
			"userName": "bjensen",
			"emails": []any{
				map[string]any{"value": "a@x.com", "type": "work", "primary": true},
			},
		},
	})
	require.True(t, created.Success)
	id := created.Data.(map[string]any)["id"].(string)

	resp := h.Handle(context.Background(), OperationRequest{
		Operation:     Patch,
		ResourceType:  "User",
		ResourceID:    id,
		TenantContext: tenant,
		Data: map[string]any{
			"Operations": []any{
				map[string]any{"op": "replace", "path": `emails[type eq "work"].primary`, "value": false},
			},
		},
	})

	require.True(t, resp.Success)
	body := resp.Data.(map[string]any)
	emails := body["emails"].([]any)
	assert.Equal(t, false, emails[0].(map[string]any)["primary"])
}

func TestHandle_ConditionalUpdate_VersionMismatch(t *testing.T) {
	h := newTestHandler(t)
	tenant := &scimctx.TenantContext{TenantID: "T1"}

	created := h.Handle(context.Background(), OperationRequest{
		Operation: Create, ResourceType: "User", TenantContext: tenant,
		Data: map[string]any{"userName": "bob"},
	})
	require.True(t, created.Success)

	body := created.Data.(map[string]any)
	id := body["id"].(string)

	resp := h.Handle(context.Background(), OperationRequest{
		Operation: Update, ResourceType: "User", ResourceID: id, TenantContext: tenant,
		Data:            map[string]any{"userName": "bob", "displayName": "changed"},
		ExpectedVersion: `W/"stale-token"`,
	})

	require.False(t, resp.Success)
	assert.Equal(t, "VERSION_MISMATCH", resp.ErrorCode)
}

func TestHandle_DeleteThenGet(t *testing.T) {
	h := newTestHandler(t)
	tenant := &scimctx.TenantContext{TenantID: "T1"}

	created := h.Handle(context.Background(), OperationRequest{
		Operation: Create, ResourceType: "User", TenantContext: tenant,
		Data: map[string]any{"userName": "dave"},
	})
	require.True(t, created.Success)
	id := created.Data.(map[string]any)["id"].(string)

	del := h.Handle(context.Background(), OperationRequest{Operation: Delete, ResourceType: "User", ResourceID: id, TenantContext: tenant})
	require.True(t, del.Success)

	get := h.Handle(context.Background(), OperationRequest{Operation: Get, ResourceType: "User", ResourceID: id, TenantContext: tenant})
	require.False(t, get.Success)
	assert.Equal(t, "RESOURCE_NOT_FOUND", get.ErrorCode)
}

func TestHandle_List_WrapsListResponseEnvelope(t *testing.T) {
	h := newTestHandler(t)
	tenant := &scimctx.TenantContext{TenantID: "T1"}

	for _, name := range []string{"a", "b"} {
		resp := h.Handle(context.Background(), OperationRequest{
			Operation: Create, ResourceType: "User", TenantContext: tenant,
			Data: map[string]any{"userName": name},
		})
		require.True(t, resp.Success)
	}

	resp := h.Handle(context.Background(), OperationRequest{Operation: List, ResourceType: "User", TenantContext: tenant})
	require.True(t, resp.Success)

	list := resp.Data.(ListResponse)
	assert.Equal(t, []string{listResponseSchema}, list.Schemas)
	assert.Equal(t, 2, list.TotalResults)
	assert.Len(t, list.Resources, 2)
	require.NotNil(t, resp.Metadata.ResourceCount)
	assert.Equal(t, 2, *resp.Metadata.ResourceCount)
}

func TestHandle_GetSchemas_ReturnsRegistryDefinitions(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), OperationRequest{Operation: GetSchemas})
	require.True(t, resp.Success)

	defs := resp.Data.([]*schemaregistry.SchemaDefinition)
	assert.NotEmpty(t, defs)
}

func TestHandle_GetSchema_UnknownURIIsSchemaNotFound(t *testing.T) {
	h := newTestHandler(t)

	resp := h.Handle(context.Background(), OperationRequest{Operation: GetSchema, ResourceType: "ignored", ResourceID: "urn:none"})
	require.False(t, resp.Success)
	assert.Equal(t, "SCHEMA_NOT_FOUND", resp.ErrorCode)
}

func TestHandle_Exists(t *testing.T) {
	h := newTestHandler(t)
	tenant := &scimctx.TenantContext{TenantID: "T1"}

	created := h.Handle(context.Background(), OperationRequest{
		Operation: Create, ResourceType: "User", TenantContext: tenant,
		Data: map[string]any{"userName": "erin"},
	})
	require.True(t, created.Success)
	id := created.Data.(map[string]any)["id"].(string)

	resp := h.Handle(context.Background(), OperationRequest{Operation: Exists, ResourceType: "User", ResourceID: id, TenantContext: tenant})
	require.True(t, resp.Success)
	assert.Equal(t, true, resp.Data)
}
