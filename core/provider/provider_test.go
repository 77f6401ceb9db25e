package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/scimcore/core/patch"
	"github.com/xraph/scimcore/core/schemaregistry"
	"github.com/xraph/scimcore/core/scimctx"
	"github.com/xraph/scimcore/core/storage/memory"
	"github.com/xraph/scimcore/core/version"
	"github.com/xraph/scimcore/internal/scimerr"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	registry, err := schemaregistry.New()
	require.NoError(t, err)

	store := memory.New()

	counter := 0
	p := New(registry, store,
		WithIDGenerator(func() string {
			counter++

			return "id-" + itoa(counter)
		}),
	)

	err = p.Register("User", ResourceTypeConfig{
		BaseSchemaURI:     "urn:ietf:params:scim:schemas:core:2.0:User",
		AllowedOperations: []Capability{CapabilityCreate, CapabilityRead, CapabilityUpdate, CapabilityDelete, CapabilityPatch, CapabilityList, CapabilitySearch},
	})
	require.NoError(t, err)

	return p
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}

	return digits
}

func ctxFor(tenant string) context.Context {
	ctx := scimctx.WithTenant(context.Background(), scimctx.TenantContext{TenantID: tenant})

	return scimctx.WithRequest(ctx, scimctx.RequestContext{RequestID: "r1"})
}

func TestCreate_StripsClientSuppliedID(t *testing.T) {
	p := newTestProvider(t)
	ctx := ctxFor("T1")

	out, err := p.Create(ctx, "User", map[string]any{
		"schemas":  []any{"urn:ietf:params:scim:schemas:core:2.0:User"},
		"id":       "client-chosen",
		"userName": "alice",
	})
	require.NoError(t, err)

	assert.NotEqual(t, "client-chosen", out["id"])
	assert.Equal(t, "alice", out["userName"])

	meta, ok := out["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "User", meta["resourceType"])
	assert.NotEmpty(t, meta["version"])
}

func TestCreate_UniquenessWithinTenant(t *testing.T) {
	p := newTestProvider(t)
	ctx := ctxFor("T1")

	payload := map[string]any{"userName": "alice"}

	_, err := p.Create(ctx, "User", payload)
	require.NoError(t, err)

	_, err = p.Create(ctx, "User", payload)
	require.Error(t, err)

	scimErr, ok := err.(*scimerr.Error)
	require.True(t, ok)
	assert.Equal(t, scimerr.CodeUniquenessViolation, scimErr.Code)
}

func TestCreate_UniquenessAcrossTenantsAllowed(t *testing.T) {
	p := newTestProvider(t)

	payload := map[string]any{"userName": "alice"}

	_, err := p.Create(ctxFor("T1"), "User", payload)
	require.NoError(t, err)

	_, err = p.Create(ctxFor("T2"), "User", payload)
	assert.NoError(t, err)
}

func TestTenantIsolation_GetAndList(t *testing.T) {
	p := newTestProvider(t)

	created, err := p.Create(ctxFor("T1"), "User", map[string]any{"userName": "alice"})
	require.NoError(t, err)

	id := created["id"].(string)

	_, found, err := p.Get(ctxFor("T2"), "User", id)
	require.NoError(t, err)
	assert.False(t, found)

	list, err := p.List(ctxFor("T2"), "User", Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, list.TotalResults)
}

func TestConditionalUpdate_RaceYieldsExactlyOneSuccess(t *testing.T) {
	p := newTestProvider(t)
	ctx := ctxFor("T1")

	created, err := p.Create(ctx, "User", map[string]any{"userName": "bob"})
	require.NoError(t, err)

	meta := created["meta"].(map[string]any)
	v0, err := version.Parse(meta["version"].(string))
	require.NoError(t, err)

	id := created["id"].(string)

	resA, errA := p.ConditionalUpdate(ctx, "User", id, map[string]any{"userName": "bob", "displayName": "A"}, v0)
	require.NoError(t, errA)

	resB, errB := p.ConditionalUpdate(ctx, "User", id, map[string]any{"userName": "bob", "displayName": "B"}, v0)
	require.NoError(t, errB)

	successes := 0
	mismatches := 0

	for _, r := range []ConditionalResult{resA, resB} {
		switch r.Status {
		case ConditionalSuccess:
			successes++
		case ConditionalVersionMismatch:
			mismatches++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, mismatches)
}

func TestPatch_FilterInPathAdvancesVersionAndLastModified(t *testing.T) {
	p := newTestProvider(t)
	ctx := ctxFor("T1")

	created, err := p.Create(ctx, "User", map[string]any{
		"userName": "bjensen",
		"emails": []any{
			map[string]any{"value": "a@x.com", "type": "work", "primary": true},
			map[string]any{"value": "b@x.com", "type": "home"},
		},
	})
	require.NoError(t, err)

	id := created["id"].(string)
	beforeMeta := created["meta"].(map[string]any)

	doc := patch.Document{Operations: []patch.Operation{
		{Op: "replace", Path: `emails[type eq "work"].primary`, Value: false},
	}}

	p.now = func() time.Time { return time.Now().Add(time.Hour) }

	out, err := p.Patch(ctx, "User", id, doc)
	require.NoError(t, err)

	emails := out["emails"].([]any)
	assert.Equal(t, false, emails[0].(map[string]any)["primary"])
	assert.Equal(t, "b@x.com", emails[1].(map[string]any)["value"])

	afterMeta := out["meta"].(map[string]any)
	assert.NotEqual(t, beforeMeta["version"], afterMeta["version"])
	assert.NotEqual(t, beforeMeta["lastModified"], afterMeta["lastModified"])
}

func TestPatch_RollbackOnFailedValidation(t *testing.T) {
	p := newTestProvider(t)
	ctx := ctxFor("T1")

	created, err := p.Create(ctx, "User", map[string]any{"userName": "carol"})
	require.NoError(t, err)

	id := created["id"].(string)

	doc := patch.Document{Operations: []patch.Operation{
		{Op: "remove", Path: "userName"},
	}}

	_, err = p.Patch(ctx, "User", id, doc)
	require.Error(t, err)

	scimErr, ok := err.(*scimerr.Error)
	require.True(t, ok)
	assert.Equal(t, scimerr.CodeValidationError, scimErr.Code)

	stored, found, err := p.Get(ctx, "User", id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "carol", stored["userName"])
}

func TestDeleteThenGet(t *testing.T) {
	p := newTestProvider(t)
	ctx := ctxFor("T1")

	created, err := p.Create(ctx, "User", map[string]any{"userName": "dave"})
	require.NoError(t, err)

	id := created["id"].(string)

	err = p.Delete(ctx, "User", id)
	require.NoError(t, err)

	_, found, err := p.Get(ctx, "User", id)
	require.NoError(t, err)
	assert.False(t, found)

	err = p.Delete(ctx, "User", id)
	require.Error(t, err)

	scimErr, ok := err.(*scimerr.Error)
	require.True(t, ok)
	assert.Equal(t, scimerr.CodeResourceNotFound, scimErr.Code)
}

func TestUpdate_RejectsImmutableChange(t *testing.T) {
	registry, err := schemaregistry.New()
	require.NoError(t, err)

	store := memory.New()
	p := New(registry, store)
	require.NoError(t, p.Register("Group", ResourceTypeConfig{
		BaseSchemaURI:     "urn:ietf:params:scim:schemas:core:2.0:Group",
		AllowedOperations: []Capability{CapabilityCreate, CapabilityUpdate},
	}))

	ctx := ctxFor("T1")

	created, err := p.Create(ctx, "Group", map[string]any{
		"displayName": "Engineers",
		"members":     []any{map[string]any{"value": "u1"}},
	})
	require.NoError(t, err)

	id := created["id"].(string)

	_, err = p.Update(ctx, "Group", id, map[string]any{
		"displayName": "Engineers",
		"members":     []any{map[string]any{"value": "u2"}},
	})
	require.Error(t, err)

	scimErr, ok := err.(*scimerr.Error)
	require.True(t, ok)
	assert.Equal(t, scimerr.CodeMutabilityViolation, scimErr.Code)
}

func TestList_RespectsMaxPageSize(t *testing.T) {
	registry, err := schemaregistry.New()
	require.NoError(t, err)

	store := memory.New()
	p := New(registry, store, WithMaxPageSize(2))
	require.NoError(t, p.Register("User", ResourceTypeConfig{
		BaseSchemaURI:     "urn:ietf:params:scim:schemas:core:2.0:User",
		AllowedOperations: []Capability{CapabilityCreate, CapabilityList},
	}))

	ctx := ctxFor("T1")

	for _, name := range []string{"a", "b", "c"} {
		_, err := p.Create(ctx, "User", map[string]any{"userName": name})
		require.NoError(t, err)
	}

	result, err := p.List(ctx, "User", Query{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalResults)
	assert.Equal(t, 2, len(result.Resources))
}

func TestList_RejectsFilter(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.List(ctxFor("T1"), "User", Query{Filter: `userName eq "alice"`})
	require.Error(t, err)

	scimErr, ok := err.(*scimerr.Error)
	require.True(t, ok)
	assert.Equal(t, scimerr.CodeUnsupportedFilter, scimErr.Code)
}

func TestUnregisteredResourceType(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.Create(ctxFor("T1"), "Widget", map[string]any{})
	require.Error(t, err)

	scimErr, ok := err.(*scimerr.Error)
	require.True(t, ok)
	assert.Equal(t, scimerr.CodeUnsupportedResourceType, scimErr.Code)
}

func TestCreate_CaseExactAttributeUniquenessIsNotFolded(t *testing.T) {
	registry, err := schemaregistry.New(schemaregistry.SchemaDefinition{
		ID:   "urn:test:schemas:CaseExactUser",
		Name: "CaseExactUser",
		Attributes: []schemaregistry.AttributeDefinition{
			{Name: "userName", Type: schemaregistry.TypeString, Required: true, Uniqueness: schemaregistry.UniquenessServer},
			{Name: "badgeId", Type: schemaregistry.TypeString, Uniqueness: schemaregistry.UniquenessServer, CaseExact: true},
		},
	})
	require.NoError(t, err)

	store := memory.New()
	p := New(registry, store)
	require.NoError(t, p.Register("CaseExactUser", ResourceTypeConfig{
		BaseSchemaURI:     "urn:test:schemas:CaseExactUser",
		AllowedOperations: []Capability{CapabilityCreate, CapabilitySearch},
	}))

	ctx := ctxFor("T1")

	_, err = p.Create(ctx, "CaseExactUser", map[string]any{"userName": "a", "badgeId": "ABC123"})
	require.NoError(t, err)

	_, err = p.Create(ctx, "CaseExactUser", map[string]any{"userName": "b", "badgeId": "abc123"})
	require.NoError(t, err, "a caseExact attribute must not be folded for uniqueness, so a differently-cased value is a distinct value")

	_, err = p.Create(ctx, "CaseExactUser", map[string]any{"userName": "c", "badgeId": "ABC123"})
	require.Error(t, err)

	scimErr, ok := err.(*scimerr.Error)
	require.True(t, ok)
	assert.Equal(t, scimerr.CodeUniquenessViolation, scimErr.Code)

	result, err := p.Search(ctx, "CaseExactUser", "badgeId", "abc123")
	require.NoError(t, err)
	require.Len(t, result.Resources, 1)
	assert.Equal(t, "b", result.Resources[0]["userName"])
}

func TestDisallowedOperation(t *testing.T) {
	registry, err := schemaregistry.New()
	require.NoError(t, err)

	store := memory.New()
	p := New(registry, store)
	require.NoError(t, p.Register("User", ResourceTypeConfig{
		BaseSchemaURI:     "urn:ietf:params:scim:schemas:core:2.0:User",
		AllowedOperations: []Capability{CapabilityCreate},
	}))

	_, err = p.Create(ctxFor("T1"), "User", map[string]any{"userName": "x"})
	require.NoError(t, err)

	_, _, err = p.Get(ctxFor("T1"), "User", "whatever")
	require.Error(t, err)

	scimErr, ok := err.(*scimerr.Error)
	require.True(t, ok)
	assert.Equal(t, scimerr.CodeUnsupportedOperation, scimErr.Code)
}
