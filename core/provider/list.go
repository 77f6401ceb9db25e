package provider

import (
	"context"

	"github.com/xraph/scimcore/core/schemaregistry"
	"github.com/xraph/scimcore/core/scimctx"
	"github.com/xraph/scimcore/core/storage"
	"github.com/xraph/scimcore/internal/scimerr"
)

// Query is the structured list/search request shape of spec §4.5.8.
// Count == nil means "unspecified", distinct from an explicit 0.
type Query struct {
	StartIndex         int
	Count              *int
	SortBy             string
	SortOrder          string
	Attributes         []string
	ExcludedAttributes []string
	Filter             string
}

// ListResult is the page of resources returned by List, ready for the
// Operation Handler to wrap as a SCIM ListResponse envelope.
type ListResult struct {
	Resources    []map[string]any
	TotalResults int
	StartIndex   int
	ItemsPerPage int
}

// List implements spec §4.5.8.
func (p *Provider) List(ctx context.Context, resourceType string, q Query) (ListResult, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return ListResult{}, err
	}

	_, schemas, err := p.checkCapability(resourceType, CapabilityList)
	if err != nil {
		return ListResult{}, err
	}

	if q.Filter != "" {
		return ListResult{}, scimerr.UnsupportedFilter(q.Filter)
	}

	startIndex := q.StartIndex
	if startIndex < 1 {
		startIndex = 1
	}

	count := p.maxPageSize
	if q.Count != nil {
		count = *q.Count
		if count < 0 {
			count = 0
		}

		if count > p.maxPageSize {
			count = p.maxPageSize
		}
	}

	result, err := p.store.List(ctx, storage.ListQuery{
		Tenant:       tenant.TenantID,
		ResourceType: resourceType,
		StartIndex:   startIndex - 1,
		Count:        count,
	})
	if err != nil {
		return ListResult{}, scimerr.ProviderError(err)
	}

	resources := make([]map[string]any, len(result.Records))
	for i, rec := range result.Records {
		resources[i] = rec.Body
	}

	sortCaseExact := false
	if attr, ok := schemaregistry.FindAttribute(schemas, q.SortBy); ok {
		sortCaseExact = attr.CaseExact
	}

	sortRecords(resources, q.SortBy, q.SortOrder, sortCaseExact)
	resources = projectAttributes(resources, q.Attributes, q.ExcludedAttributes)

	return ListResult{
		Resources:    resources,
		TotalResults: result.TotalResults,
		StartIndex:   startIndex,
		ItemsPerPage: len(resources),
	}, nil
}

// Search implements spec §4.5.9 wrapped as a list-shaped result holding
// every match, used by the Operation Handler's Search operation.
func (p *Provider) Search(ctx context.Context, resourceType, attribute, value string) (ListResult, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return ListResult{}, err
	}

	_, schemas, err := p.checkCapability(resourceType, CapabilitySearch)
	if err != nil {
		return ListResult{}, err
	}

	caseExact := false
	if attr, ok := schemaregistry.FindAttribute(schemas, attribute); ok {
		caseExact = attr.CaseExact
	}

	matches, err := p.store.FindByAttribute(ctx, tenant.TenantID, resourceType, attribute, value, caseExact)
	if err != nil {
		return ListResult{}, scimerr.ProviderError(err)
	}

	resources := make([]map[string]any, len(matches))
	for i, m := range matches {
		resources[i] = m.Body
	}

	return ListResult{
		Resources:    resources,
		TotalResults: len(resources),
		StartIndex:   1,
		ItemsPerPage: len(resources),
	}, nil
}

// projectAttributes applies spec §4.5.8's attributes/excludedAttributes
// post-projection. Both top-level only. The only attributes kept
// regardless of include/exclude are schemas, id and meta; other
// returned=always or readOnly attributes are not exempted and are
// dropped or kept by the lists like any other attribute.
func projectAttributes(resources []map[string]any, include, exclude []string) []map[string]any {
	if len(include) == 0 && len(exclude) == 0 {
		return resources
	}

	out := make([]map[string]any, len(resources))

	for i, r := range resources {
		out[i] = projectOne(r, include, exclude)
	}

	return out
}

func projectOne(r map[string]any, include, exclude []string) map[string]any {
	always := map[string]bool{"schemas": true, "id": true, "meta": true}

	if len(include) > 0 {
		keep := make(map[string]bool, len(include))
		for _, a := range include {
			keep[a] = true
		}

		out := make(map[string]any)

		for k, v := range r {
			if always[k] || keep[k] {
				out[k] = v
			}
		}

		return out
	}

	drop := make(map[string]bool, len(exclude))
	for _, a := range exclude {
		drop[a] = true
	}

	out := make(map[string]any)

	for k, v := range r {
		if always[k] || !drop[k] {
			out[k] = v
		}
	}

	return out
}
