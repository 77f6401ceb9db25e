package values

import (
	"regexp"
	"strings"

	"github.com/xraph/scimcore/internal/scimerr"
)

// Standard schema URIs recognised by the embedded registry (spec §6.4).
const (
	SchemaURICoreUser           = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaURICoreGroup          = "urn:ietf:params:scim:schemas:core:2.0:Group"
	SchemaURIEnterpriseUser     = "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User"
	SchemaURIServiceProviderCfg = "urn:ietf:params:scim:schemas:core:2.0:ServiceProviderConfig"
)

// schemaURIRegex accepts a colon-separated URN-shaped token, e.g.
// "urn:ietf:params:scim:schemas:core:2.0:User" or a caller-registered
// "urn:example:schemas:extension:2.0:CustomType".
var schemaURIRegex = regexp.MustCompile(`^urn(:[A-Za-z0-9_.\-]+){2,}$`)

// SchemaURI validates a colon-separated URN-shaped token identifying a
// SCIM schema.
type SchemaURI string

// NewSchemaURI validates and constructs a SchemaURI.
func NewSchemaURI(raw string) (SchemaURI, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", scimerr.ValidationError("schemas", "schema URI must not be empty")
	}

	if !schemaURIRegex.MatchString(trimmed) {
		return "", scimerr.ValidationError("schemas", "schema URI must be a colon-separated urn: token")
	}

	return SchemaURI(trimmed), nil
}

func (s SchemaURI) String() string { return string(s) }
