// Package schemaregistry implements the in-memory catalog of SCIM schema
// definitions (spec §4.2): the standard core User, core Group, and
// enterprise User extension are embedded at construction; callers may
// register additional schemas. The registry performs no I/O.
package schemaregistry

// DataType enumerates the SCIM attribute data types (RFC 7643 §2.2).
type DataType string

const (
	TypeString    DataType = "string"
	TypeBoolean   DataType = "boolean"
	TypeDecimal   DataType = "decimal"
	TypeInteger   DataType = "integer"
	TypeDateTime  DataType = "dateTime"
	TypeBinary    DataType = "binary"
	TypeReference DataType = "reference"
	TypeComplex   DataType = "complex"
)

// Mutability enumerates attribute write access (RFC 7643 §2.2).
type Mutability string

const (
	MutabilityReadOnly  Mutability = "readOnly"
	MutabilityReadWrite Mutability = "readWrite"
	MutabilityImmutable Mutability = "immutable"
	MutabilityWriteOnly Mutability = "writeOnly"
)

// Returned enumerates when an attribute is included in a returned
// resource (RFC 7643 §2.2).
type Returned string

const (
	ReturnedAlways  Returned = "always"
	ReturnedDefault Returned = "default"
	ReturnedNever   Returned = "never"
	ReturnedRequest Returned = "request"
)

// Uniqueness enumerates the scope within which an attribute's value must
// be unique (RFC 7643 §2.2).
type Uniqueness string

const (
	UniquenessNone   Uniqueness = "none"
	UniquenessServer Uniqueness = "server"
	UniquenessGlobal Uniqueness = "global"
)

// AttributeDefinition describes one attribute of a SchemaDefinition,
// including its sub-attributes when Type is complex.
type AttributeDefinition struct {
	Name            string                `json:"name"`
	Type            DataType              `json:"type"`
	MultiValued     bool                  `json:"multiValued"`
	Required        bool                  `json:"required"`
	CaseExact       bool                  `json:"caseExact"`
	Mutability      Mutability            `json:"mutability"`
	Returned        Returned              `json:"returned"`
	Uniqueness      Uniqueness            `json:"uniqueness"`
	CanonicalValues []string              `json:"canonicalValues,omitempty"`
	SubAttributes   []AttributeDefinition `json:"subAttributes,omitempty"`
	// GlobalScope marks a UniquenessGlobal attribute as unique across
	// tenants (spec §9 open question 1). The core itself does not read
	// it: core/provider checks every server- or global-unique attribute
	// within a single tenant, whatever this flag says.
	GlobalScope bool `json:"-"`
}

// SchemaDefinition is an immutable description of a resource schema: its
// URI, display name, and attribute list.
type SchemaDefinition struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Attributes  []AttributeDefinition `json:"attributes"`
}

// FindAttribute looks up a top-level attribute by name, case-insensitively.
func (s *SchemaDefinition) FindAttribute(name string) (*AttributeDefinition, bool) {
	for i := range s.Attributes {
		if equalFold(s.Attributes[i].Name, name) {
			return &s.Attributes[i], true
		}
	}

	return nil, false
}

// FindSubAttribute looks up a sub-attribute by name, case-insensitively.
func (a *AttributeDefinition) FindSubAttribute(name string) (*AttributeDefinition, bool) {
	for i := range a.SubAttributes {
		if equalFold(a.SubAttributes[i].Name, name) {
			return &a.SubAttributes[i], true
		}
	}

	return nil, false
}

// FindAttribute looks up a top-level attribute by name across every
// schema in schemas (base schema plus any bound extensions),
// case-insensitively. Used by callers that need an attribute's
// comparison semantics (CaseExact, Uniqueness) without caring which
// schema in the set declares it.
func FindAttribute(schemas []*SchemaDefinition, name string) (*AttributeDefinition, bool) {
	for _, s := range schemas {
		if attr, ok := s.FindAttribute(name); ok {
			return attr, true
		}
	}

	return nil, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}

		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}

		if ca != cb {
			return false
		}
	}

	return true
}
