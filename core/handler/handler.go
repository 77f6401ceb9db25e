// Package handler implements the transport-neutral Operation Handler
// façade (spec §4.8): a single entry point that consumes an
// OperationRequest and returns an OperationResponse, translating
// provider-level errors into the §7 machine error-code taxonomy. HTTP,
// CLI, or any other transport binding is expected to be a thin adapter
// in front of this package.
package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/xraph/scimcore/core/provider"
	"github.com/xraph/scimcore/core/schemaregistry"
	"github.com/xraph/scimcore/core/scimctx"
	"github.com/xraph/scimcore/core/version"
	"github.com/xraph/scimcore/internal/scimerr"
)

// Kind enumerates the operations an OperationRequest may name.
type Kind string

const (
	Create     Kind = "Create"
	Get        Kind = "Get"
	Update     Kind = "Update"
	Patch      Kind = "Patch"
	Delete     Kind = "Delete"
	List       Kind = "List"
	Search     Kind = "Search"
	Exists     Kind = "Exists"
	GetSchemas Kind = "GetSchemas"
	GetSchema  Kind = "GetSchema"
)

// defaultTenant is used when a request carries no TenantContext (spec
// §4.6: "all storage keys use a well-known 'default' tenant string").
const defaultTenant = "default"

// OperationRequest is the structured, transport-neutral request shape of
// spec §6.1.
type OperationRequest struct {
	Operation      Kind `validate:"required"`
	ResourceType   string
	ResourceID     string
	Data           map[string]any
	Query          *provider.Query
	SearchAttr     string
	SearchValue    string
	TenantContext  *scimctx.TenantContext
	RequestID      string
	ExpectedVersion string
}

// Metadata carries the bookkeeping fields of spec §6.2.
type Metadata struct {
	RequestID     string `json:"request_id"`
	TenantID      string `json:"tenant_id,omitempty"`
	ResourceType  string `json:"resource_type,omitempty"`
	ResourceID    string `json:"resource_id,omitempty"`
	ResourceCount *int   `json:"resource_count,omitempty"`
	SchemaID      string `json:"schema_id,omitempty"`
}

// OperationResponse is the structured response shape of spec §6.2.
type OperationResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

// Handler is the Operation Handler façade.
type Handler struct {
	provider *provider.Provider
	registry *schemaregistry.Registry
	validate *validator.Validate
}

// New constructs a Handler over a provider and its schema registry.
func New(p *provider.Provider, registry *schemaregistry.Registry) *Handler {
	return &Handler{provider: p, registry: registry, validate: validator.New()}
}

// Handle dispatches req to the provider method implementing its
// operation and translates the result into an OperationResponse. Handle
// never panics or returns a Go error for expected failure modes; every
// recognised failure becomes a structured response (spec §4.8).
func (h *Handler) Handle(ctx context.Context, req OperationRequest) OperationResponse {
	if err := h.validate.Struct(req); err != nil {
		return h.errorResponse(req, scimerr.InvalidRequest(err.Error()))
	}

	if err := checkShape(req); err != nil {
		return h.errorResponse(req, err)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	tenant := scimctx.TenantContext{TenantID: defaultTenant}
	if req.TenantContext != nil && req.TenantContext.TenantID != "" {
		tenant = *req.TenantContext
	}

	ctx = scimctx.WithTenant(ctx, tenant)
	ctx = scimctx.WithRequest(ctx, scimctx.RequestContext{RequestID: requestID, Tenant: &tenant})

	meta := Metadata{RequestID: requestID, TenantID: tenant.TenantID, ResourceType: req.ResourceType, ResourceID: req.ResourceID}

	switch req.Operation {
	case Create:
		return h.handleCreate(ctx, req, meta)
	case Get:
		return h.handleGet(ctx, req, meta)
	case Update:
		return h.handleUpdate(ctx, req, meta)
	case Patch:
		return h.handlePatch(ctx, req, meta)
	case Delete:
		return h.handleDelete(ctx, req, meta)
	case List:
		return h.handleList(ctx, req, meta)
	case Search:
		return h.handleSearch(ctx, req, meta)
	case Exists:
		return h.handleExists(ctx, req, meta)
	case GetSchemas:
		return h.handleGetSchemas(req, meta)
	case GetSchema:
		return h.handleGetSchema(req, meta)
	default:
		return h.errorResponse(req, scimerr.InvalidRequest("unrecognised operation"))
	}
}

// checkShape enforces spec §6.1's per-operation required-field table
// beyond what a struct tag can express (validator's conditional tags are
// fragile for a 10-way switch; a plain Go switch is both clearer and
// exercised identically by tests).
func checkShape(req OperationRequest) error {
	if req.Operation != GetSchemas && req.ResourceType == "" {
		return scimerr.InvalidRequest("resource_type is required")
	}

	switch req.Operation {
	case Get, Update, Patch, Delete, Exists, GetSchema:
		if req.ResourceID == "" {
			return scimerr.InvalidRequest("resource_id is required")
		}
	}

	switch req.Operation {
	case Create, Update, Patch:
		if req.Data == nil {
			return scimerr.InvalidRequest("data is required")
		}
	}

	if req.Operation == Search && (req.SearchAttr == "" || req.SearchValue == "") {
		return scimerr.InvalidRequest("search requires an attribute and value")
	}

	return nil
}

func (h *Handler) errorResponse(req OperationRequest, err error) OperationResponse {
	se := scimerr.InternalError(err)
	if cast, ok := err.(*scimerr.Error); ok {
		se = cast
	}

	return OperationResponse{
		Success:   false,
		Data:      nil,
		Error:     se.Message,
		ErrorCode: se.Code,
		Metadata:  Metadata{RequestID: req.RequestID, ResourceType: req.ResourceType, ResourceID: req.ResourceID},
	}
}

func errorResponseWithMeta(meta Metadata, err error) OperationResponse {
	se := scimerr.InternalError(err)
	if cast, ok := err.(*scimerr.Error); ok {
		se = cast
	}

	return OperationResponse{Success: false, Data: nil, Error: se.Message, ErrorCode: se.Code, Metadata: meta}
}

func successResponse(data any, meta Metadata) OperationResponse {
	return OperationResponse{Success: true, Data: data, Metadata: meta}
}

func parseExpectedVersion(raw string) (version.Version, bool, error) {
	if raw == "" {
		return version.Version{}, false, nil
	}

	v, err := version.Parse(raw)
	if err != nil {
		return version.Version{}, false, err
	}

	return v, true, nil
}
