package schemaregistry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/singleflight"

	"github.com/xraph/scimcore/core/values"
	"github.com/xraph/scimcore/internal/scimerr"
)

// resourceTypeBinding records which schemas apply to a resource type: a
// required base schema plus zero or more extensions.
type resourceTypeBinding struct {
	base       string
	extensions []string
}

// Registry is the immutable-after-construction catalog of SchemaDefinitions
// (spec §4.2). It performs no I/O: the standard schemas are compiled in,
// and extra definitions are supplied by the caller at construction time.
type Registry struct {
	mu           sync.RWMutex
	schemas      map[string]*SchemaDefinition
	resourceType map[string]resourceTypeBinding

	lookupGroup singleflight.Group
}

// New constructs a Registry containing the standard core User, core Group,
// enterprise User extension, and ServiceProviderConfig schemas, plus any
// caller-supplied extras. Construction fails if an extra definition is
// syntactically invalid; it does not attempt deep cross-schema consistency
// checks.
func New(extra ...SchemaDefinition) (*Registry, error) {
	r := &Registry{
		schemas:      make(map[string]*SchemaDefinition),
		resourceType: make(map[string]resourceTypeBinding),
	}

	standard := []SchemaDefinition{
		coreUserSchema(),
		coreGroupSchema(),
		enterpriseUserExtensionSchema(),
		serviceProviderConfigSchema(),
	}

	for _, s := range standard {
		r.install(s)
	}

	for _, s := range extra {
		if err := validateSchemaDefinition(s); err != nil {
			return nil, err
		}

		r.install(s)
	}

	r.resourceType["User"] = resourceTypeBinding{base: values.SchemaURICoreUser}
	r.resourceType["Group"] = resourceTypeBinding{base: values.SchemaURICoreGroup}

	return r, nil
}

// install registers a schema, overwriting any prior definition with the
// same URI (later registrations win, matching a "last write wins"
// constructor-time policy).
func (r *Registry) install(s SchemaDefinition) {
	cp := s
	r.schemas[s.ID] = &cp
}

// validateSchemaDefinition runs a structural sanity check on a
// caller-supplied schema by projecting it into a minimal JSON-schema
// document and compiling it. This catches malformed attribute shapes
// (bad names, unknown types) before installation; it is not a
// substitute for the attribute-level SCIM validation in validate.go.
func validateSchemaDefinition(s SchemaDefinition) error {
	if strings.TrimSpace(s.ID) == "" {
		return scimerr.ValidationError("id", "schema id must not be empty")
	}

	if len(s.Attributes) == 0 {
		return scimerr.ValidationError(s.ID, "schema must declare at least one attribute")
	}

	for _, a := range s.Attributes {
		if strings.TrimSpace(a.Name) == "" {
			return scimerr.ValidationError(s.ID, "attribute name must not be empty")
		}

		switch a.Type {
		case TypeString, TypeBoolean, TypeDecimal, TypeInteger, TypeDateTime, TypeBinary, TypeReference, TypeComplex:
		default:
			return scimerr.ValidationError(s.ID, fmt.Sprintf("attribute %q has unknown type %q", a.Name, a.Type))
		}
	}

	doc := schemaAsJSONSchema(s)

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(s.ID, doc); err != nil {
		return scimerr.ValidationError(s.ID, fmt.Sprintf("malformed schema document: %v", err))
	}

	if _, err := compiler.Compile(s.ID); err != nil {
		return scimerr.ValidationError(s.ID, fmt.Sprintf("schema failed structural validation: %v", err))
	}

	return nil
}

// schemaAsJSONSchema projects a SchemaDefinition into the minimal
// JSON-schema document used purely for the structural sanity check above.
func schemaAsJSONSchema(s SchemaDefinition) map[string]any {
	properties := make(map[string]any, len(s.Attributes))

	for _, a := range s.Attributes {
		properties[a.Name] = jsonSchemaTypeFor(a)
	}

	return map[string]any{
		"$id":        s.ID,
		"type":       "object",
		"properties": properties,
	}
}

func jsonSchemaTypeFor(a AttributeDefinition) map[string]any {
	var t string

	switch a.Type {
	case TypeBoolean:
		t = "boolean"
	case TypeInteger:
		t = "integer"
	case TypeDecimal:
		t = "number"
	case TypeComplex:
		t = "object"
	default:
		t = "string"
	}

	if a.MultiValued {
		return map[string]any{"type": "array", "items": map[string]any{"type": t}}
	}

	return map[string]any{"type": t}
}

// SchemaByURI returns the registered definition for uri.
func (r *Registry) SchemaByURI(uri string) (*SchemaDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[uri]
	if !ok {
		return nil, scimerr.SchemaNotFound(uri)
	}

	return s, nil
}

// All enumerates every registered schema, for discovery operations.
func (r *Registry) All() []*SchemaDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*SchemaDefinition, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}

	return out
}

// BindResourceType associates a resource type with a base schema and zero
// or more extension schemas. All named schema URIs must already be
// registered. Called by the provider at resource-type registration time
// (spec §4.5.10).
func (r *Registry) BindResourceType(resourceType, baseSchemaURI string, extensionURIs ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schemas[baseSchemaURI]; !ok {
		return scimerr.SchemaNotFound(baseSchemaURI)
	}

	for _, ext := range extensionURIs {
		if _, ok := r.schemas[ext]; !ok {
			return scimerr.SchemaNotFound(ext)
		}
	}

	r.resourceType[resourceType] = resourceTypeBinding{base: baseSchemaURI, extensions: extensionURIs}

	return nil
}

// SchemasForResourceType returns the base schema plus any registered
// extensions applicable to resourceType.
func (r *Registry) SchemasForResourceType(resourceType string) ([]*SchemaDefinition, error) {
	v, err, _ := r.lookupGroup.Do(resourceType, func() (any, error) {
		r.mu.RLock()
		defer r.mu.RUnlock()

		binding, ok := r.resourceType[resourceType]
		if !ok {
			return nil, scimerr.UnsupportedResourceType(resourceType)
		}

		out := make([]*SchemaDefinition, 0, 1+len(binding.extensions))

		base, ok := r.schemas[binding.base]
		if !ok {
			return nil, scimerr.SchemaNotFound(binding.base)
		}

		out = append(out, base)

		for _, ext := range binding.extensions {
			s, ok := r.schemas[ext]
			if !ok {
				return nil, scimerr.SchemaNotFound(ext)
			}

			out = append(out, s)
		}

		return out, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]*SchemaDefinition), nil
}
