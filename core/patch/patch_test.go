package patch

import (
	"testing"

	"github.com/xraph/scimcore/core/schemaregistry"
)

func testUserSchemas(t *testing.T) []*schemaregistry.SchemaDefinition {
	t.Helper()

	r, err := schemaregistry.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	schemas, err := r.SchemasForResourceType("User")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return schemas
}

func TestApply_FilterInPathReplace(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{
		"userName": "bjensen",
		"emails": []any{
			map[string]any{"value": "a@x", "type": "work", "primary": true},
			map[string]any{"value": "b@x", "type": "home"},
		},
	}

	doc := Document{
		Operations: []Operation{
			{Op: "replace", Path: `emails[type eq "work"].primary`, Value: false},
		},
	}

	out, err := Apply(schemas, resource, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	emails := out["emails"].([]any)
	if emails[0].(map[string]any)["primary"] != false {
		t.Errorf("expected work email primary=false, got %v", emails[0])
	}

	if emails[1].(map[string]any)["value"] != "b@x" {
		t.Errorf("expected home email unchanged, got %v", emails[1])
	}

	if resource["emails"].([]any)[0].(map[string]any)["primary"] != true {
		t.Error("expected original resource untouched")
	}
}

func TestApply_RemoveRequiredAttributeSucceedsStructurally(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{"userName": "carol"}

	doc := Document{Operations: []Operation{{Op: "remove", Path: "userName"}}}

	out, err := Apply(schemas, resource, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, present := out["userName"]; present {
		t.Error("expected userName removed from working copy")
	}

	if resource["userName"] != "carol" {
		t.Error("expected original resource untouched by remove")
	}
}

func TestApply_RejectsPatchToID(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{"id": "1", "userName": "bjensen"}

	doc := Document{Operations: []Operation{{Op: "replace", Path: "id", Value: "2"}}}

	if _, err := Apply(schemas, resource, doc); err == nil {
		t.Error("expected mutability violation for patching id")
	}
}

func TestApply_RejectsPatchToReadOnlyAttribute(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{"userName": "bjensen"}

	doc := Document{Operations: []Operation{
		{Op: "add", Path: "groups", Value: []any{map[string]any{"value": "g1"}}},
	}}

	if _, err := Apply(schemas, resource, doc); err == nil {
		t.Error("expected mutability violation for patching read-only groups")
	}
}

func TestApply_RejectsUnknownOp(t *testing.T) {
	schemas := testUserSchemas(t)

	doc := Document{Operations: []Operation{{Op: "frobnicate", Path: "userName", Value: "x"}}}

	if _, err := Apply(schemas, map[string]any{"userName": "a"}, doc); err == nil {
		t.Error("expected invalid operation error")
	}
}

func TestApply_RemoveWithoutPathIsNoTarget(t *testing.T) {
	schemas := testUserSchemas(t)

	doc := Document{Operations: []Operation{{Op: "remove"}}}

	if _, err := Apply(schemas, map[string]any{"userName": "a"}, doc); err == nil {
		t.Error("expected NoTarget error for remove without path")
	}
}

func TestApply_RemoveNonMatchingFilterIsNoOp(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{
		"userName": "bjensen",
		"emails": []any{
			map[string]any{"value": "a@x", "type": "work"},
		},
	}

	doc := Document{Operations: []Operation{
		{Op: "remove", Path: `emails[type eq "home"]`},
	}}

	out, err := Apply(schemas, resource, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out["emails"].([]any)) != 1 {
		t.Errorf("expected no-op removal, got %v", out["emails"])
	}
}

func TestApply_AddAppendsToMultiValued(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{
		"userName": "bjensen",
		"emails":   []any{map[string]any{"value": "a@x", "type": "work"}},
	}

	doc := Document{Operations: []Operation{
		{Op: "add", Path: "emails", Value: []any{map[string]any{"value": "b@x", "type": "home"}}},
	}}

	out, err := Apply(schemas, resource, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out["emails"].([]any)) != 2 {
		t.Errorf("expected 2 emails after append, got %d", len(out["emails"].([]any)))
	}
}

func TestApply_EmptyPathAddMergesObject(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{"userName": "bjensen"}

	doc := Document{Operations: []Operation{
		{Op: "add", Value: map[string]any{"displayName": "Barbara Jensen"}},
	}}

	out, err := Apply(schemas, resource, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out["displayName"] != "Barbara Jensen" {
		t.Errorf("expected displayName merged, got %v", out["displayName"])
	}
}

func TestApply_CreatesIntermediateStructureForNestedAdd(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{"userName": "bjensen"}

	doc := Document{Operations: []Operation{
		{Op: "add", Path: "name.givenName", Value: "Barbara"},
	}}

	out, err := Apply(schemas, resource, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name, ok := out["name"].(map[string]any)
	if !ok || name["givenName"] != "Barbara" {
		t.Errorf("expected intermediate name structure created, got %v", out["name"])
	}
}

func TestApply_FilterAddsNewElementWhenNoneMatch(t *testing.T) {
	schemas := testUserSchemas(t)

	resource := map[string]any{
		"userName": "bjensen",
		"emails":   []any{map[string]any{"value": "a@x", "type": "work"}},
	}

	doc := Document{Operations: []Operation{
		{Op: "add", Path: `emails[type eq "home"].value`, Value: "b@x"},
	}}

	out, err := Apply(schemas, resource, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	emails := out["emails"].([]any)
	if len(emails) != 2 {
		t.Fatalf("expected new element created, got %d emails", len(emails))
	}
}
