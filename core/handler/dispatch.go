package handler

import (
	"context"

	"github.com/xraph/scimcore/core/patch"
	"github.com/xraph/scimcore/core/provider"
	"github.com/xraph/scimcore/internal/scimerr"
)

func (h *Handler) handleCreate(ctx context.Context, req OperationRequest, meta Metadata) OperationResponse {
	out, err := h.provider.Create(ctx, req.ResourceType, req.Data)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	meta.ResourceID, _ = out["id"].(string)

	return successResponse(out, meta)
}

func (h *Handler) handleGet(ctx context.Context, req OperationRequest, meta Metadata) OperationResponse {
	out, found, err := h.provider.Get(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	if !found {
		// Open question: a bare Get returns (nil, false, nil) for a
		// missing resource; the handler is the layer that standardises
		// this into RESOURCE_NOT_FOUND for callers.
		return errorResponseWithMeta(meta, scimerr.ResourceNotFound(req.ResourceType, req.ResourceID))
	}

	return successResponse(out, meta)
}

func (h *Handler) handleUpdate(ctx context.Context, req OperationRequest, meta Metadata) OperationResponse {
	expected, hasExpected, err := parseExpectedVersion(req.ExpectedVersion)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	if !hasExpected {
		out, err := h.provider.Update(ctx, req.ResourceType, req.ResourceID, req.Data)
		if err != nil {
			return errorResponseWithMeta(meta, err)
		}

		return successResponse(out, meta)
	}

	result, err := h.provider.ConditionalUpdate(ctx, req.ResourceType, req.ResourceID, req.Data, expected)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	return conditionalResponse(req, meta, result)
}

func (h *Handler) handlePatch(ctx context.Context, req OperationRequest, meta Metadata) OperationResponse {
	doc, err := decodePatchDocument(req.Data)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	expected, hasExpected, err := parseExpectedVersion(req.ExpectedVersion)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	if !hasExpected {
		out, err := h.provider.Patch(ctx, req.ResourceType, req.ResourceID, doc)
		if err != nil {
			return errorResponseWithMeta(meta, err)
		}

		return successResponse(out, meta)
	}

	result, err := h.provider.ConditionalPatch(ctx, req.ResourceType, req.ResourceID, doc, expected)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	return conditionalResponse(req, meta, result)
}

func (h *Handler) handleDelete(ctx context.Context, req OperationRequest, meta Metadata) OperationResponse {
	expected, hasExpected, err := parseExpectedVersion(req.ExpectedVersion)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	if !hasExpected {
		if err := h.provider.Delete(ctx, req.ResourceType, req.ResourceID); err != nil {
			return errorResponseWithMeta(meta, err)
		}

		return successResponse(nil, meta)
	}

	status, err := h.provider.ConditionalDelete(ctx, req.ResourceType, req.ResourceID, expected)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	switch status {
	case provider.ConditionalSuccess:
		return successResponse(nil, meta)
	case provider.ConditionalNotFound:
		return errorResponseWithMeta(meta, scimerr.ResourceNotFound(req.ResourceType, req.ResourceID))
	default:
		return errorResponseWithMeta(meta, scimerr.VersionMismatch(req.ExpectedVersion, ""))
	}
}

func (h *Handler) handleList(ctx context.Context, req OperationRequest, meta Metadata) OperationResponse {
	q := provider.Query{}
	if req.Query != nil {
		q = *req.Query
	}

	result, err := h.provider.List(ctx, req.ResourceType, q)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	count := result.TotalResults
	meta.ResourceCount = &count

	return successResponse(toListResponse(result), meta)
}

func (h *Handler) handleSearch(ctx context.Context, req OperationRequest, meta Metadata) OperationResponse {
	result, err := h.provider.Search(ctx, req.ResourceType, req.SearchAttr, req.SearchValue)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	count := result.TotalResults
	meta.ResourceCount = &count

	return successResponse(toListResponse(result), meta)
}

func (h *Handler) handleExists(ctx context.Context, req OperationRequest, meta Metadata) OperationResponse {
	_, found, err := h.provider.Get(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	return successResponse(found, meta)
}

func (h *Handler) handleGetSchemas(req OperationRequest, meta Metadata) OperationResponse {
	return successResponse(h.registry.All(), meta)
}

func (h *Handler) handleGetSchema(req OperationRequest, meta Metadata) OperationResponse {
	def, err := h.registry.SchemaByURI(req.ResourceID)
	if err != nil {
		return errorResponseWithMeta(meta, err)
	}

	meta.SchemaID = req.ResourceID

	return successResponse(def, meta)
}

func conditionalResponse(req OperationRequest, meta Metadata, result provider.ConditionalResult) OperationResponse {
	switch result.Status {
	case provider.ConditionalSuccess:
		return successResponse(result.Resource, meta)
	case provider.ConditionalNotFound:
		return errorResponseWithMeta(meta, scimerr.ResourceNotFound(req.ResourceType, req.ResourceID))
	default:
		return errorResponseWithMeta(meta, scimerr.VersionMismatch(result.Expected, result.Current))
	}
}

// decodePatchDocument translates the SCIM PatchOp wire shape (spec
// §4.7.1: {"schemas": [...], "Operations": [{"op","path","value"}]}) that
// arrives as req.Data into a patch.Document.
func decodePatchDocument(data map[string]any) (patch.Document, error) {
	doc := patch.Document{}

	if schemas, ok := data["schemas"].([]any); ok {
		for _, s := range schemas {
			if str, ok := s.(string); ok {
				doc.Schemas = append(doc.Schemas, str)
			}
		}
	}

	rawOps, ok := data["Operations"].([]any)
	if !ok {
		rawOps, ok = data["operations"].([]any)
	}

	if !ok {
		return doc, scimerr.InvalidRequest("patch data must contain an Operations array")
	}

	for _, rawOp := range rawOps {
		opMap, ok := rawOp.(map[string]any)
		if !ok {
			return doc, scimerr.InvalidRequest("each PATCH operation must be an object")
		}

		op, _ := opMap["op"].(string)
		path, _ := opMap["path"].(string)

		doc.Operations = append(doc.Operations, patch.Operation{
			Op:    op,
			Path:  path,
			Value: opMap["value"],
		})
	}

	return doc, nil
}
