// Package resource wraps the raw map[string]any representation of a SCIM
// resource with typed accessors and the canonical serialization rules
// used for transport (spec §4.1). Version computation in core/version
// canonicalizes independently and does not use this package.
package resource

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/xraph/scimcore/internal/scimerr"
)

// leadingKeys are emitted first, in this order, when Resource is
// marshaled; everything else follows alphabetically.
var leadingKeys = []string{"schemas", "id", "externalId", "meta"}

// Resource is a mutable, schema-agnostic SCIM resource body. Validation
// against a schema is performed by the schemaregistry package, not here;
// Resource itself only enforces structural shape.
type Resource struct {
	data map[string]any
}

// New wraps an existing map as a Resource, taking ownership of it.
func New(data map[string]any) *Resource {
	if data == nil {
		data = make(map[string]any)
	}

	return &Resource{data: data}
}

// Map returns the underlying map. Callers that mutate it directly bypass
// Resource's accessors; prefer the typed setters below.
func (r *Resource) Map() map[string]any {
	return r.data
}

// Clone returns a deep copy, safe for independent mutation.
func (r *Resource) Clone() *Resource {
	return New(deepCopy(r.data).(map[string]any))
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}

		return out
	default:
		return v
	}
}

// ID returns the resource's "id" attribute, or empty string if unset.
func (r *Resource) ID() string {
	s, _ := r.data["id"].(string)

	return s
}

// SetID sets the resource's "id" attribute.
func (r *Resource) SetID(id string) {
	r.data["id"] = id
}

// Schemas returns the declared "schemas" URN list.
func (r *Resource) Schemas() []string {
	raw, ok := r.data["schemas"]
	if !ok {
		return nil
	}

	switch t := raw.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))

		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

// SetSchemas sets the "schemas" attribute.
func (r *Resource) SetSchemas(uris []string) {
	r.data["schemas"] = uris
}

// Meta holds the spec §4.1 system-maintained metadata block.
type Meta struct {
	ResourceType string    `json:"resourceType"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
	Version      string    `json:"version"`
	Location     string    `json:"location,omitempty"`
}

// SetMeta installs the meta block as a nested map, matching the shape a
// JSON-serialized resource would have.
func (r *Resource) SetMeta(m Meta) {
	entry := map[string]any{
		"resourceType": m.ResourceType,
		"created":      m.Created.UTC().Format(time.RFC3339),
		"lastModified": m.LastModified.UTC().Format(time.RFC3339),
		"version":      m.Version,
	}

	if m.Location != "" {
		entry["location"] = m.Location
	}

	r.data["meta"] = entry
}

// GetMeta reads back the meta block installed by SetMeta.
func (r *Resource) GetMeta() (Meta, bool) {
	raw, ok := r.data["meta"].(map[string]any)
	if !ok {
		return Meta{}, false
	}

	m := Meta{}

	if s, ok := raw["resourceType"].(string); ok {
		m.ResourceType = s
	}

	if s, ok := raw["version"].(string); ok {
		m.Version = s
	}

	if s, ok := raw["location"].(string); ok {
		m.Location = s
	}

	if s, ok := raw["created"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			m.Created = t
		}
	}

	if s, ok := raw["lastModified"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			m.LastModified = t
		}
	}

	return m, true
}

// GetString returns a top-level string attribute.
func (r *Resource) GetString(name string) (string, bool) {
	v, ok := r.data[name]
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

// GetComplex returns a top-level complex (single-valued object) attribute.
func (r *Resource) GetComplex(name string) (map[string]any, bool) {
	v, ok := r.data[name]
	if !ok {
		return nil, false
	}

	m, ok := v.(map[string]any)

	return m, ok
}

// GetMultiValued returns a top-level multi-valued attribute as a slice.
func (r *Resource) GetMultiValued(name string) ([]any, bool) {
	v, ok := r.data[name]
	if !ok {
		return nil, false
	}

	items, ok := v.([]any)

	return items, ok
}

// MarshalJSON emits canonical key ordering: schemas, id, externalId, meta
// first, then every remaining key alphabetically. This gives a stable,
// predictable wire representation without affecting version computation
// (which canonicalizes independently; see core/version).
func (r *Resource) MarshalJSON() ([]byte, error) {
	seen := make(map[string]bool, len(leadingKeys))

	var buf bytes.Buffer

	buf.WriteByte('{')

	first := true

	writeKV := func(k string, v any) error {
		if !first {
			buf.WriteByte(',')
		}

		first = false

		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}

		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}

		buf.Write(vb)

		return nil
	}

	for _, k := range leadingKeys {
		if v, ok := r.data[k]; ok {
			if err := writeKV(k, v); err != nil {
				return nil, scimerr.InternalError(err)
			}

			seen[k] = true
		}
	}

	rest := make([]string, 0, len(r.data))

	for k := range r.data {
		if !seen[k] {
			rest = append(rest, k)
		}
	}

	sort.Strings(rest)

	for _, k := range rest {
		if err := writeKV(k, r.data[k]); err != nil {
			return nil, scimerr.InternalError(err)
		}
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes into the underlying map.
func (r *Resource) UnmarshalJSON(b []byte) error {
	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return scimerr.InvalidRequest("malformed resource JSON").WithError(err)
	}

	r.data = m

	return nil
}
