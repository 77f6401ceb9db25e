// Package values implements the typed, validated primitives attributes are
// built from: resource identifiers, user names, emails, and schema URIs.
// Construction fails with a scimerr.Error describing the offending field.
package values

import (
	"strings"

	"github.com/xraph/scimcore/internal/scimerr"
)

// ResourceID is an opaque, non-empty, case-sensitive resource identifier.
// It is typically server-generated (see core/provider), but any
// provider-chosen non-empty token is acceptable.
type ResourceID string

// NewResourceID validates and constructs a ResourceID.
func NewResourceID(raw string) (ResourceID, error) {
	if raw == "" {
		return "", scimerr.ValidationError("id", "must not be empty")
	}

	return ResourceID(raw), nil
}

// String returns the underlying token.
func (r ResourceID) String() string { return string(r) }

// IsEmpty reports whether r carries no value.
func (r ResourceID) IsEmpty() bool { return r == "" }

// UserName is a non-empty, trimmed user name. Uniqueness (case-insensitive,
// within tenant+User) is enforced by the provider, not here.
type UserName string

// NewUserName validates and constructs a UserName.
func NewUserName(raw string) (UserName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", scimerr.ValidationError("userName", "must not be empty")
	}

	return UserName(trimmed), nil
}

func (u UserName) String() string { return string(u) }

// EqualFold reports whether two UserNames are equal ignoring case, the
// comparison used for server-unique attribute enforcement.
func (u UserName) EqualFold(other UserName) bool {
	return strings.EqualFold(string(u), string(other))
}
