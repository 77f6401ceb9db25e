// Package scimerr defines the stable, machine-readable error taxonomy used
// throughout the SCIM core. Every recognised failure is represented as an
// *Error; the core never panics on expected input.
package scimerr

import (
	"fmt"
	"net/http"
	"time"
)

// Stable machine codes. Messages are human-readable and may change; codes
// never do.
const (
	CodeValidationError         = "VALIDATION_ERROR"
	CodeMutabilityViolation     = "MUTABILITY_VIOLATION"
	CodeUniquenessViolation     = "UNIQUENESS_VIOLATION"
	CodeResourceNotFound        = "RESOURCE_NOT_FOUND"
	CodeSchemaNotFound          = "SCHEMA_NOT_FOUND"
	CodeUnsupportedResourceType = "UNSUPPORTED_RESOURCE_TYPE"
	CodeUnsupportedOperation    = "UNSUPPORTED_OPERATION"
	CodeUnsupportedFilter       = "UNSUPPORTED_FILTER"
	CodeInvalidPath             = "INVALID_PATH"
	CodeInvalidOperation        = "INVALID_OPERATION"
	CodeNoTarget                = "NO_TARGET"
	CodeVersionMismatch         = "VERSION_MISMATCH"
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeProviderError           = "PROVIDER_ERROR"
	CodeInternalError           = "INTERNAL_ERROR"
)

// Error is the structured error type returned by every package in this
// module. It carries a stable Code, a human Message, an HTTP-status hint
// for transport layers, free-form Context for debugging, and an optional
// wrapped cause.
type Error struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Context    map[string]any `json:"context,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Err        error          `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is compares errors by Code, so callers can write
// errors.Is(err, scimerr.ErrResourceNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}

	return e.Code != "" && e.Code == t.Code
}

// WithContext attaches a debug key/value pair and returns the receiver.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

// WithError wraps an underlying cause.
func (e *Error) WithError(err error) *Error {
	e.Err = err

	return e
}

// New creates a new *Error.
func New(code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// Wrap creates a new *Error around an existing cause.
func Wrap(err error, code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
		Timestamp:  time.Now(),
	}
}

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// ValidationError signals that a resource payload failed schema validation.
func ValidationError(path, reason string) *Error {
	return New(CodeValidationError, "Resource failed schema validation", http.StatusBadRequest).
		WithContext("path", path).
		WithContext("reason", reason)
}

// MutabilityViolation signals an attempt to write a read-only attribute or
// change an immutable one.
func MutabilityViolation(path, reason string) *Error {
	return New(CodeMutabilityViolation, "Attribute is not writable", http.StatusBadRequest).
		WithContext("path", path).
		WithContext("reason", reason)
}

// UniquenessViolation signals that a unique attribute's value is already in
// use within the tenant (or globally).
func UniquenessViolation(attribute, value string) *Error {
	return New(CodeUniquenessViolation, "Attribute value is already in use", http.StatusConflict).
		WithContext("attribute", attribute).
		WithContext("value", value)
}

// ResourceNotFound signals that the target resource does not exist.
func ResourceNotFound(resourceType, id string) *Error {
	return New(CodeResourceNotFound, "Resource not found", http.StatusNotFound).
		WithContext("resourceType", resourceType).
		WithContext("id", id)
}

// SchemaNotFound signals that a requested schema URI is not registered.
func SchemaNotFound(schemaURI string) *Error {
	return New(CodeSchemaNotFound, "Schema not registered", http.StatusNotFound).
		WithContext("schemaUri", schemaURI)
}

// UnsupportedResourceType signals that the resource-type is not registered
// with the provider.
func UnsupportedResourceType(resourceType string) *Error {
	return New(CodeUnsupportedResourceType, "Resource type not supported", http.StatusBadRequest).
		WithContext("resourceType", resourceType)
}

// UnsupportedOperation signals that the operation is not permitted for this
// resource-type.
func UnsupportedOperation(resourceType, operation string) *Error {
	return New(CodeUnsupportedOperation, "Operation not supported for this resource type", http.StatusMethodNotAllowed).
		WithContext("resourceType", resourceType).
		WithContext("operation", operation)
}

// UnsupportedFilter signals that the caller supplied a filter expression the
// core does not evaluate.
func UnsupportedFilter(filter string) *Error {
	return New(CodeUnsupportedFilter, "Filter expressions are not evaluated by the core", http.StatusBadRequest).
		WithContext("filter", filter)
}

// InvalidPath signals a malformed PATCH path expression.
func InvalidPath(path, reason string) *Error {
	return New(CodeInvalidPath, "Invalid PATCH path", http.StatusBadRequest).
		WithContext("path", path).
		WithContext("reason", reason)
}

// InvalidOperation signals a PATCH op outside {add, replace, remove}.
func InvalidOperation(op string) *Error {
	return New(CodeInvalidOperation, "Invalid PATCH operation", http.StatusBadRequest).
		WithContext("op", op)
}

// NoTarget signals a PATCH remove without a path, or a required path match
// that resolved to nothing.
func NoTarget(reason string) *Error {
	return New(CodeNoTarget, "No target for PATCH operation", http.StatusBadRequest).
		WithContext("reason", reason)
}

// VersionMismatch signals that a conditional operation's expected version
// differs from the stored resource's current version.
func VersionMismatch(expected, current string) *Error {
	return New(CodeVersionMismatch, "Version mismatch", http.StatusPreconditionFailed).
		WithContext("expected", expected).
		WithContext("current", current)
}

// InvalidRequest signals that required operation fields are missing or the
// request shape is malformed.
func InvalidRequest(reason string) *Error {
	return New(CodeInvalidRequest, "Invalid request", http.StatusBadRequest).
		WithContext("reason", reason)
}

// ProviderError signals an opaque storage-substrate failure.
func ProviderError(err error) *Error {
	return Wrap(err, CodeProviderError, "Storage operation failed", http.StatusInternalServerError)
}

// InternalError signals a bug or unclassified failure.
func InternalError(err error) *Error {
	return Wrap(err, CodeInternalError, "Internal error", http.StatusInternalServerError)
}

// =============================================================================
// SENTINEL ERRORS (for use with errors.Is)
// =============================================================================

var (
	ErrResourceNotFound        = &Error{Code: CodeResourceNotFound}
	ErrSchemaNotFound          = &Error{Code: CodeSchemaNotFound}
	ErrUnsupportedResourceType = &Error{Code: CodeUnsupportedResourceType}
	ErrUnsupportedOperation    = &Error{Code: CodeUnsupportedOperation}
	ErrUnsupportedFilter       = &Error{Code: CodeUnsupportedFilter}
	ErrValidation              = &Error{Code: CodeValidationError}
	ErrMutabilityViolation     = &Error{Code: CodeMutabilityViolation}
	ErrUniquenessViolation     = &Error{Code: CodeUniquenessViolation}
	ErrInvalidPath             = &Error{Code: CodeInvalidPath}
	ErrInvalidOperation        = &Error{Code: CodeInvalidOperation}
	ErrNoTarget                = &Error{Code: CodeNoTarget}
	ErrVersionMismatch         = &Error{Code: CodeVersionMismatch}
	ErrInvalidRequest          = &Error{Code: CodeInvalidRequest}
)

// SCIMError is the wire shape transport layers should produce from an
// *Error (spec §6.3 / RFC 7644 §3.12).
type SCIMError struct {
	Schemas  []string `json:"schemas"`
	Status   string   `json:"status"`
	ScimType string   `json:"scimType,omitempty"`
	Detail   string   `json:"detail"`
}

// scimTypeByCode maps this package's internal codes onto the registered
// RFC 7644 §3.12 scimType values. Codes with no registered equivalent
// (not-found/not-supported/internal failures, which aren't in that
// table) are left unmapped and produce no scimType.
var scimTypeByCode = map[string]string{
	CodeUniquenessViolation: "uniqueness",
	CodeMutabilityViolation: "mutability",
	CodeInvalidPath:         "invalidPath",
	CodeNoTarget:            "noTarget",
	CodeVersionMismatch:     "invalidVers",
	CodeUnsupportedFilter:   "invalidFilter",
	CodeValidationError:     "invalidValue",
	CodeInvalidOperation:    "invalidSyntax",
	CodeInvalidRequest:      "invalidSyntax",
}

// ToSCIMError converts e into the standard SCIM error JSON shape.
func (e *Error) ToSCIMError() *SCIMError {
	return &SCIMError{
		Schemas:  []string{"urn:ietf:params:scim:api:messages:2.0:Error"},
		Status:   fmt.Sprintf("%d", e.HTTPStatus),
		ScimType: scimTypeByCode[e.Code],
		Detail:   e.Message,
	}
}
