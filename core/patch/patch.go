// Package patch implements the SCIM PATCH engine (spec §4.7 / RFC 7644
// §3.5.2): path grammar parsing, filter evaluation, and add/replace/remove
// semantics applied atomically to a working copy of a resource.
package patch

import (
	"strings"

	"github.com/xraph/scimcore/core/schemaregistry"
	"github.com/xraph/scimcore/internal/scimerr"
)

// OpKind is one of the three PATCH operation verbs.
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpReplace OpKind = "replace"
	OpRemove  OpKind = "remove"
)

// Operation is one entry of a PATCH document's Operations array.
type Operation struct {
	Op    string
	Path  string
	Value any
}

// Document is a full PATCH request body.
type Document struct {
	Schemas    []string
	Operations []Operation
}

var rejectedTopLevel = map[string]bool{
	"id": true,
}

var rejectedMetaSub = map[string]bool{
	"resourcetype": true,
	"created":      true,
	"version":      true,
	"location":     true,
}

// Apply runs every operation in doc against a deep copy of resource, in
// order, and returns the resulting resource. If any operation fails, the
// error identifies the failing index via its Context["operationIndex"]
// and the original resource is never touched (spec §4.7.3). Callers are
// responsible for running final schema validation afterward (patch-result
// mode) — this function does not call the schema validator, only
// structural rejected-path and op-shape checks that require no knowledge
// of required/canonical-value rules.
func Apply(schemas []*schemaregistry.SchemaDefinition, resource map[string]any, doc Document) (map[string]any, error) {
	working := deepCopy(resource)

	for i, op := range doc.Operations {
		if err := applyOne(schemas, working, op); err != nil {
			if se, ok := err.(*scimerr.Error); ok {
				se.WithContext("operationIndex", i)
			}

			return nil, err
		}
	}

	return working, nil
}

func applyOne(schemas []*schemaregistry.SchemaDefinition, resource map[string]any, op Operation) error {
	kind := OpKind(strings.ToLower(op.Op))

	switch kind {
	case OpAdd, OpReplace, OpRemove:
	default:
		return scimerr.InvalidOperation(op.Op)
	}

	path, err := ParsePath(op.Path)
	if err != nil {
		return err
	}

	if kind == OpRemove && path.IsEmpty() {
		return scimerr.NoTarget("remove requires a path")
	}

	if err := checkRejectedPath(schemas, path); err != nil {
		return err
	}

	switch kind {
	case OpAdd:
		return applyAdd(schemas, resource, path, op.Value)
	case OpReplace:
		return applyReplace(schemas, resource, path, op.Value)
	default:
		return applyRemove(resource, path)
	}
}

// checkRejectedPath enforces spec §4.7.4: writes to server-managed
// identity/meta fields, or to any attribute declared readOnly, are
// rejected regardless of op.
func checkRejectedPath(schemas []*schemaregistry.SchemaDefinition, path Path) error {
	if path.IsEmpty() {
		return nil
	}

	first := path.Segments[0]

	if rejectedTopLevel[strings.ToLower(first.Name)] {
		return scimerr.MutabilityViolation(path.String(), "attribute is server-managed")
	}

	if strings.EqualFold(first.Name, "meta") && len(path.Segments) > 1 {
		sub := path.Segments[1].Name
		if rejectedMetaSub[strings.ToLower(sub)] {
			return scimerr.MutabilityViolation(path.String(), "meta sub-attribute is server-managed")
		}
	}

	attr := findAttribute(schemas, first)
	if attr != nil && attr.Mutability == schemaregistry.MutabilityReadOnly {
		return scimerr.MutabilityViolation(path.String(), "attribute is read-only")
	}

	return nil
}

func findAttribute(schemas []*schemaregistry.SchemaDefinition, seg Segment) *schemaregistry.AttributeDefinition {
	for _, s := range schemas {
		if seg.SchemaURI != "" && s.ID != seg.SchemaURI {
			continue
		}

		if a, ok := s.FindAttribute(seg.Name); ok {
			return a
		}
	}

	return nil
}

// applyAdd implements spec §4.7.2 "add".
func applyAdd(schemas []*schemaregistry.SchemaDefinition, resource map[string]any, path Path, value any) error {
	if path.IsEmpty() {
		obj, ok := value.(map[string]any)
		if !ok {
			return scimerr.InvalidPath("", "add with empty path requires an object value")
		}

		for k, v := range obj {
			mergeTopLevel(schemas, resource, k, v, true)
		}

		return nil
	}

	return setAtPath(schemas, resource, path, value, true)
}

// applyReplace implements spec §4.7.2 "replace".
func applyReplace(schemas []*schemaregistry.SchemaDefinition, resource map[string]any, path Path, value any) error {
	if path.IsEmpty() {
		obj, ok := value.(map[string]any)
		if !ok {
			return scimerr.InvalidPath("", "replace with empty path requires an object value")
		}

		for k, v := range obj {
			mergeTopLevel(schemas, resource, k, v, false)
		}

		return nil
	}

	return setAtPath(schemas, resource, path, value, false)
}

func mergeTopLevel(schemas []*schemaregistry.SchemaDefinition, resource map[string]any, key string, value any, appendArrays bool) {
	attr := findAttribute(schemas, Segment{Name: key})
	if appendArrays && attr != nil && attr.MultiValued {
		existing, _ := resource[key].([]any)

		if items, ok := value.([]any); ok {
			resource[key] = append(existing, items...)

			return
		}

		resource[key] = append(existing, value)

		return
	}

	resource[key] = value
}

// applyRemove implements spec §4.7.2 "remove".
func applyRemove(resource map[string]any, path Path) error {
	return removeAtPath(resource, path.Segments)
}

func removeAtPath(container map[string]any, segments []Segment) error {
	seg := segments[0]

	if len(segments) == 1 {
		if seg.Filter == nil {
			delete(container, seg.Name)

			return nil
		}

		items, ok := container[seg.Name].([]any)
		if !ok {
			return nil
		}

		remaining := make([]any, 0, len(items))

		for _, it := range items {
			m, ok := it.(map[string]any)
			if ok && seg.Filter.Evaluate(m) {
				continue
			}

			remaining = append(remaining, it)
		}

		container[seg.Name] = remaining

		return nil
	}

	if seg.Filter != nil {
		items, ok := container[seg.Name].([]any)
		if !ok {
			return nil
		}

		for _, it := range items {
			m, ok := it.(map[string]any)
			if ok && seg.Filter.Evaluate(m) {
				if err := removeAtPath(m, segments[1:]); err != nil {
					return err
				}
			}
		}

		return nil
	}

	next, ok := container[seg.Name].(map[string]any)
	if !ok {
		return nil
	}

	return removeAtPath(next, segments[1:])
}

// setAtPath walks/creates intermediate structure along path and sets the
// final segment's value, per spec §4.7.2.
func setAtPath(schemas []*schemaregistry.SchemaDefinition, resource map[string]any, path Path, value any, appendArrays bool) error {
	return setRecursive(schemas, resource, path.Segments, value, appendArrays)
}

func setRecursive(schemas []*schemaregistry.SchemaDefinition, container map[string]any, segments []Segment, value any, appendArrays bool) error {
	seg := segments[0]

	attr := findAttribute(schemas, seg)

	if len(segments) == 1 && seg.Filter == nil {
		if attr != nil && attr.MultiValued {
			if appendArrays {
				existing, _ := container[seg.Name].([]any)

				if items, ok := value.([]any); ok {
					container[seg.Name] = append(existing, items...)

					return nil
				}

				container[seg.Name] = append(existing, value)

				return nil
			}
		}

		container[seg.Name] = value

		return nil
	}

	if seg.Filter != nil {
		items, _ := container[seg.Name].([]any)

		matched := false

		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok || !seg.Filter.Evaluate(m) {
				continue
			}

			matched = true

			if len(segments) == 1 {
				mergeFilteredElement(m, value)

				continue
			}

			if err := setRecursive(schemas, m, segments[1:], value, appendArrays); err != nil {
				return err
			}
		}

		if matched {
			container[seg.Name] = items

			return nil
		}

		// No element matched the filter: create one (spec §4.7.2 add rule).
		newElem := make(map[string]any)

		if len(segments) == 1 {
			mergeFilteredElement(newElem, value)
		} else if err := setRecursive(schemas, newElem, segments[1:], value, appendArrays); err != nil {
			return err
		}

		container[seg.Name] = append(items, newElem)

		return nil
	}

	next, ok := container[seg.Name].(map[string]any)
	if !ok {
		next = make(map[string]any)
		container[seg.Name] = next
	}

	return setRecursive(schemas, next, segments[1:], value, appendArrays)
}

func mergeFilteredElement(elem map[string]any, value any) {
	if m, ok := value.(map[string]any); ok {
		for k, v := range m {
			elem[k] = v
		}

		return
	}
}

func deepCopy(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = deepCopyValue(val)
	}

	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}

		return out
	default:
		return v
	}
}
