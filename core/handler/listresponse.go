package handler

import "github.com/xraph/scimcore/core/provider"

// listResponseSchema is the single fixed schema URI of a SCIM ListResponse
// (spec §6.3 / RFC 7644 §3.4.2).
const listResponseSchema = "urn:ietf:params:scim:api:messages:2.0:ListResponse"

// ListResponse is the SCIM envelope shape wrapping a page of resources.
type ListResponse struct {
	Schemas      []string         `json:"schemas"`
	TotalResults int              `json:"totalResults"`
	StartIndex   int              `json:"startIndex"`
	ItemsPerPage int              `json:"itemsPerPage"`
	Resources    []map[string]any `json:"Resources"`
}

func toListResponse(result provider.ListResult) ListResponse {
	resources := result.Resources
	if resources == nil {
		resources = []map[string]any{}
	}

	return ListResponse{
		Schemas:      []string{listResponseSchema},
		TotalResults: result.TotalResults,
		StartIndex:   result.StartIndex,
		ItemsPerPage: result.ItemsPerPage,
		Resources:    resources,
	}
}
