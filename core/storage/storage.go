// Package storage defines the substrate interface resource providers use
// to persist resources (spec §4.4). It owns no semantics beyond key-value
// storage, tenant partitioning, and a handful of secondary-index queries;
// schema validation, versioning, and PATCH semantics live above it in
// core/provider.
package storage

import "context"

// Key uniquely addresses one stored resource: a tenant, a resource type,
// and an id. Every Substrate method is implicitly scoped by Key.Tenant —
// no method accepts a query that spans tenants (spec §4.4 invariant).
type Key struct {
	Tenant       string
	ResourceType string
	ID           string
}

// Record is the stored unit: the resource body plus the version token it
// was last written with. Substrate implementations do not interpret
// either field.
type Record struct {
	Key     Key
	Body    map[string]any
	Version string
}

// ListQuery describes a List call's pagination and attribute-equality
// filter. The substrate evaluates only exact, single-attribute equality
// (FilterAttribute/FilterValue); richer SCIM filter expressions are
// evaluated above this layer or rejected with UnsupportedFilter (spec
// §4.5.8).
type ListQuery struct {
	Tenant          string
	ResourceType    string
	StartIndex      int
	Count           int
	FilterAttribute string
	FilterValue     string
	// FilterCaseExact mirrors the matched attribute's schema CaseExact
	// flag (RFC 7643 §2.2): false compares FilterValue case-insensitively,
	// true requires an exact match.
	FilterCaseExact bool
}

// ListResult is the page of records returned by List, plus the total
// count of matching records across the whole collection (not just the
// page), needed to populate a SCIM ListResponse's totalResults.
type ListResult struct {
	Records      []Record
	TotalResults int
}

// Substrate is the storage contract a resource provider depends on.
// Every method is context.Context-aware and fallible: implementations
// backed by a real database may block or fail on any call.
type Substrate interface {
	Put(ctx context.Context, key Key, body map[string]any, version string) error
	Get(ctx context.Context, key Key) (Record, bool, error)
	Delete(ctx context.Context, key Key) error
	Exists(ctx context.Context, key Key) (bool, error)
	List(ctx context.Context, q ListQuery) (ListResult, error)
	Count(ctx context.Context, tenant, resourceType string) (int, error)

	// FindByAttribute returns every record in tenant/resourceType whose
	// top-level attribute equals value. Used for uniqueness checks (spec
	// §3 invariant 3) and the provider's FindByAttribute and Search.
	// caseExact mirrors the attribute's schema CaseExact flag (RFC 7643
	// §2.2): false compares case-insensitively, true requires an exact
	// match. Callers look this up from the schema registry; the
	// substrate has no schema awareness of its own.
	FindByAttribute(ctx context.Context, tenant, resourceType, attribute, value string, caseExact bool) ([]Record, error)
}
