package schemaregistry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/scimcore/core/values"
	"github.com/xraph/scimcore/internal/scimerr"
)

// Mode selects which validation rules apply to a resource payload (spec
// §4.2).
type Mode int

const (
	// ModeCreate validates a client-supplied create payload.
	ModeCreate Mode = iota
	// ModeReplace validates a full PUT replacement payload.
	ModeReplace
	// ModePatchResult validates the resource produced by applying a PATCH
	// document; required attributes must remain present but need not have
	// been re-supplied by the PATCH operations themselves.
	ModePatchResult
)

// Validate checks resource against the union of schemas for the given
// mode, returning a sanitized copy with read-only attributes stripped (not
// an error in ModeCreate/ModeReplace/ModePatchResult — stripping a
// client-supplied read-only value is routine input hygiene; rejecting an
// explicit PATCH of a read-only path is handled separately by the PATCH
// engine, which has the path information this function does not).
func Validate(schemas []*SchemaDefinition, resource map[string]any, mode Mode) (map[string]any, error) {
	sanitized := make(map[string]any, len(resource))
	for k, v := range resource {
		sanitized[k] = v
	}

	known := knownTopLevelNames(schemas)
	registeredURIs := registeredSchemaURIs(schemas)

	for key, val := range resource {
		if isSystemKey(key) {
			continue
		}

		if registeredURIs[key] {
			// Namespaced extension attribute bag; validate its members against
			// the matching extension schema below.
			continue
		}

		attr, ok := known[strings.ToLower(key)]
		if !ok {
			return nil, scimerr.ValidationError(key, "unknown attribute for base schema")
		}

		if attr.Mutability == MutabilityReadOnly {
			delete(sanitized, key)

			continue
		}

		if err := validateValue(key, *attr, val); err != nil {
			return nil, err
		}
	}

	for _, schema := range schemas {
		if bag, ok := resource[schema.ID]; ok {
			bagMap, ok := bag.(map[string]any)
			if !ok {
				return nil, scimerr.ValidationError(schema.ID, "extension attribute bag must be an object")
			}

			for _, attr := range schema.Attributes {
				if v, present := lookupCaseInsensitive(bagMap, attr.Name); present {
					if err := validateValue(schema.ID+":"+attr.Name, attr, v); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	if err := checkRequired(schemas, sanitized, mode); err != nil {
		return nil, err
	}

	if err := checkCanonicalValues(schemas, sanitized); err != nil {
		return nil, err
	}

	return sanitized, nil
}

func isSystemKey(key string) bool {
	switch strings.ToLower(key) {
	case "schemas", "id", "externalid", "meta":
		return true
	default:
		return false
	}
}

func knownTopLevelNames(schemas []*SchemaDefinition) map[string]*AttributeDefinition {
	out := make(map[string]*AttributeDefinition)

	if len(schemas) == 0 {
		return out
	}

	base := schemas[0]
	for i := range base.Attributes {
		out[strings.ToLower(base.Attributes[i].Name)] = &base.Attributes[i]
	}

	return out
}

func registeredSchemaURIs(schemas []*SchemaDefinition) map[string]bool {
	out := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		out[s.ID] = true
	}

	return out
}

func lookupCaseInsensitive(m map[string]any, name string) (any, bool) {
	for k, v := range m {
		if equalFold(k, name) {
			return v, true
		}
	}

	return nil, false
}

// checkRequired verifies every required attribute across every applicable
// schema is present and non-null in resource. Applies identically across
// all three modes: patch-result only relaxes that a PATCH operation need
// not have *re-supplied* the value, not that it may be absent afterward.
func checkRequired(schemas []*SchemaDefinition, resource map[string]any, _ Mode) error {
	for _, schema := range schemas {
		isExtension := len(resource) > 0 && schema != schemas[0]

		var scope map[string]any
		if isExtension {
			bag, ok := resource[schema.ID]
			if !ok {
				// Extension not present at all; only an error if it declares
				// required attributes and the schemas list names it.
				if !hasRequired(schema.Attributes) {
					continue
				}

				if !schemaListed(resource, schema.ID) {
					continue
				}

				return scimerr.ValidationError(schema.ID, "required extension attributes missing")
			}

			m, ok := bag.(map[string]any)
			if !ok {
				return scimerr.ValidationError(schema.ID, "extension attribute bag must be an object")
			}

			scope = m
		} else {
			scope = resource
		}

		for _, attr := range schema.Attributes {
			if !attr.Required {
				continue
			}

			v, present := lookupCaseInsensitive(scope, attr.Name)
			if !present || isNullish(v) {
				return scimerr.ValidationError(attr.Name, "required attribute missing")
			}
		}
	}

	return nil
}

func hasRequired(attrs []AttributeDefinition) bool {
	for _, a := range attrs {
		if a.Required {
			return true
		}
	}

	return false
}

func schemaListed(resource map[string]any, schemaURI string) bool {
	list, ok := resource["schemas"].([]any)
	if !ok {
		if strs, ok := resource["schemas"].([]string); ok {
			for _, s := range strs {
				if s == schemaURI {
					return true
				}
			}
		}

		return false
	}

	for _, s := range list {
		if str, ok := s.(string); ok && str == schemaURI {
			return true
		}
	}

	return false
}

func isNullish(v any) bool {
	if v == nil {
		return true
	}

	if s, ok := v.(string); ok && s == "" {
		return true
	}

	return false
}

// checkCanonicalValues enforces declared canonical value sets across
// multi-valued complex attributes (e.g. emails[].type).
func checkCanonicalValues(schemas []*SchemaDefinition, resource map[string]any) error {
	if len(schemas) == 0 {
		return nil
	}

	base := schemas[0]

	for _, attr := range base.Attributes {
		if !attr.MultiValued || attr.Type != TypeComplex {
			continue
		}

		raw, ok := resource[attr.Name]
		if !ok {
			continue
		}

		items, ok := raw.([]any)
		if !ok {
			continue
		}

		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}

			for _, sub := range attr.SubAttributes {
				if len(sub.CanonicalValues) == 0 {
					continue
				}

				v, present := lookupCaseInsensitive(m, sub.Name)
				if !present {
					continue
				}

				s, ok := v.(string)
				if !ok {
					continue
				}

				if !inCanonicalSet(s, sub.CanonicalValues, sub.CaseExact) {
					return scimerr.ValidationError(attr.Name+"."+sub.Name,
						fmt.Sprintf("value %q is not one of the declared canonical values", s))
				}
			}
		}
	}

	return nil
}

func inCanonicalSet(value string, set []string, caseExact bool) bool {
	for _, c := range set {
		if caseExact {
			if value == c {
				return true
			}
		} else if strings.EqualFold(value, c) {
			return true
		}
	}

	return false
}

// validateValue checks a single attribute's value against its declared
// data type.
func validateValue(path string, attr AttributeDefinition, val any) error {
	if val == nil {
		return nil
	}

	if attr.MultiValued {
		items, ok := val.([]any)
		if !ok {
			return scimerr.ValidationError(path, "expected an array for a multi-valued attribute")
		}

		for i, item := range items {
			if err := validateScalarOrComplex(fmt.Sprintf("%s[%d]", path, i), attr, item); err != nil {
				return err
			}
		}

		return nil
	}

	return validateScalarOrComplex(path, attr, val)
}

func validateScalarOrComplex(path string, attr AttributeDefinition, val any) error {
	switch attr.Type {
	case TypeString, TypeReference, TypeBinary:
		if _, ok := val.(string); !ok {
			return scimerr.ValidationError(path, "expected a string value")
		}

	case TypeBoolean:
		if _, ok := val.(bool); !ok {
			return scimerr.ValidationError(path, "expected a boolean value")
		}

	case TypeInteger:
		switch n := val.(type) {
		case float64:
			if n != float64(int64(n)) {
				return scimerr.ValidationError(path, "expected an integer value")
			}
		case int, int64:
			// already integral
		default:
			return scimerr.ValidationError(path, "expected an integer value")
		}

	case TypeDecimal:
		switch val.(type) {
		case float64, int, int64:
			// numeric
		default:
			return scimerr.ValidationError(path, "expected a numeric value")
		}

	case TypeDateTime:
		s, ok := val.(string)
		if !ok {
			return scimerr.ValidationError(path, "expected an ISO 8601 dateTime string")
		}

		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return scimerr.ValidationError(path, "must be an ISO 8601 (RFC 3339) dateTime")
		}

	case TypeComplex:
		m, ok := val.(map[string]any)
		if !ok {
			return scimerr.ValidationError(path, "expected a complex (object) value")
		}

		for _, sub := range attr.SubAttributes {
			v, present := lookupCaseInsensitive(m, sub.Name)
			if !present {
				continue
			}

			subPath := path + "." + sub.Name

			if strings.EqualFold(attr.Name, "emails") && strings.EqualFold(sub.Name, "value") {
				if err := validateEmailValue(subPath, v); err != nil {
					return err
				}

				continue
			}

			if err := validateValue(subPath, sub, v); err != nil {
				return err
			}
		}

	default:
		return scimerr.ValidationError(path, "unknown attribute data type")
	}

	return nil
}

// validateEmailValue enforces the local@domain shape on an emails[].value
// sub-attribute via values.NewEmailAddress, rather than accepting any
// non-empty string the way the generic TypeString case does.
func validateEmailValue(path string, val any) error {
	s, ok := val.(string)
	if !ok {
		return scimerr.ValidationError(path, "expected a string value")
	}

	if _, err := values.NewEmailAddress(s); err != nil {
		return scimerr.ValidationError(path, "must be a valid local@domain email address")
	}

	return nil
}

// CheckImmutableUnchanged returns a MutabilityViolation if next changes the
// value of any attribute declared immutable relative to previous. Used by
// the provider's full-replace (PUT) path (spec §4.5.4 step 2).
func CheckImmutableUnchanged(schemas []*SchemaDefinition, previous, next map[string]any) error {
	if len(schemas) == 0 {
		return nil
	}

	base := schemas[0]

	for _, attr := range base.Attributes {
		if attr.Mutability != MutabilityImmutable {
			continue
		}

		oldV, oldOK := lookupCaseInsensitive(previous, attr.Name)
		newV, newOK := lookupCaseInsensitive(next, attr.Name)

		if !newOK {
			continue
		}

		if !oldOK {
			continue
		}

		if !deepEqualJSON(oldV, newV) {
			return scimerr.MutabilityViolation(attr.Name, "immutable attribute cannot be changed after creation")
		}
	}

	return nil
}

func deepEqualJSON(a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)

	if aok && bok {
		return as == bs
	}

	af, afok := toFloat(a)
	bf, bfok := toFloat(b)

	if afok && bfok {
		return af == bf
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)

		return f, err == nil
	default:
		return 0, false
	}
}
