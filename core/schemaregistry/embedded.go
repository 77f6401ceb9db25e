package schemaregistry

import "github.com/xraph/scimcore/core/values"

// coreUserSchema is the RFC 7643 §4.1 core User schema, compiled in so the
// registry needs no file I/O to function.
func coreUserSchema() SchemaDefinition {
	return SchemaDefinition{
		ID:          values.SchemaURICoreUser,
		Name:        "User",
		Description: "User Account",
		Attributes: []AttributeDefinition{
			{
				Name: "userName", Type: TypeString, Required: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				Uniqueness: UniquenessServer,
			},
			{
				Name: "name", Type: TypeComplex, Mutability: MutabilityReadWrite,
				Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "formatted", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "familyName", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "givenName", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "middleName", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "honorificPrefix", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "honorificSuffix", Type: TypeString, Mutability: MutabilityReadWrite},
				},
			},
			{Name: "displayName", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "nickName", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "profileUrl", Type: TypeReference, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "title", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "userType", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "preferredLanguage", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "locale", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "timezone", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "active", Type: TypeBoolean, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "password", Type: TypeString, Mutability: MutabilityWriteOnly, Returned: ReturnedNever},
			{
				Name: "emails", Type: TypeComplex, MultiValued: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "value", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "type", Type: TypeString, Mutability: MutabilityReadWrite, CanonicalValues: []string{"work", "home", "other"}},
					{Name: "primary", Type: TypeBoolean, Mutability: MutabilityReadWrite},
					{Name: "display", Type: TypeString, Mutability: MutabilityReadWrite},
				},
			},
			{
				Name: "phoneNumbers", Type: TypeComplex, MultiValued: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "value", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "type", Type: TypeString, Mutability: MutabilityReadWrite, CanonicalValues: []string{"work", "home", "mobile", "fax", "pager", "other"}},
					{Name: "primary", Type: TypeBoolean, Mutability: MutabilityReadWrite},
				},
			},
			{
				Name: "addresses", Type: TypeComplex, MultiValued: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "type", Type: TypeString, Mutability: MutabilityReadWrite, CanonicalValues: []string{"work", "home", "other"}},
					{Name: "streetAddress", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "locality", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "region", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "postalCode", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "country", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "formatted", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "primary", Type: TypeBoolean, Mutability: MutabilityReadWrite},
				},
			},
			{
				Name: "photos", Type: TypeComplex, MultiValued: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "value", Type: TypeReference, Mutability: MutabilityReadWrite},
					{Name: "type", Type: TypeString, Mutability: MutabilityReadWrite, CanonicalValues: []string{"photo", "thumbnail"}},
					{Name: "primary", Type: TypeBoolean, Mutability: MutabilityReadWrite},
				},
			},
			{
				Name: "entitlements", Type: TypeComplex, MultiValued: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "value", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "display", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "type", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "primary", Type: TypeBoolean, Mutability: MutabilityReadWrite},
				},
			},
			{
				Name: "roles", Type: TypeComplex, MultiValued: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "value", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "display", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "type", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "primary", Type: TypeBoolean, Mutability: MutabilityReadWrite},
				},
			},
			{
				Name: "groups", Type: TypeComplex, MultiValued: true,
				Mutability: MutabilityReadOnly, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "value", Type: TypeString, Mutability: MutabilityReadOnly},
					{Name: "display", Type: TypeString, Mutability: MutabilityReadOnly},
					{Name: "type", Type: TypeString, Mutability: MutabilityReadOnly, CanonicalValues: []string{"direct", "indirect"}},
					{Name: "$ref", Type: TypeReference, Mutability: MutabilityReadOnly},
				},
			},
		},
	}
}

// coreGroupSchema is the RFC 7643 §4.2 core Group schema.
func coreGroupSchema() SchemaDefinition {
	return SchemaDefinition{
		ID:          values.SchemaURICoreGroup,
		Name:        "Group",
		Description: "Group",
		Attributes: []AttributeDefinition{
			{
				Name: "displayName", Type: TypeString, Required: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				Uniqueness: UniquenessServer,
			},
			{
				Name: "members", Type: TypeComplex, MultiValued: true,
				Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "value", Type: TypeString, Mutability: MutabilityImmutable},
					{Name: "$ref", Type: TypeReference, Mutability: MutabilityImmutable},
					{Name: "type", Type: TypeString, Mutability: MutabilityImmutable, CanonicalValues: []string{"User", "Group"}},
					{Name: "display", Type: TypeString, Mutability: MutabilityImmutable},
				},
			},
		},
	}
}

// enterpriseUserExtensionSchema is the RFC 7643 §4.3 enterprise User
// extension schema.
func enterpriseUserExtensionSchema() SchemaDefinition {
	return SchemaDefinition{
		ID:          values.SchemaURIEnterpriseUser,
		Name:        "EnterpriseUser",
		Description: "Enterprise User",
		Attributes: []AttributeDefinition{
			{Name: "employeeNumber", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "costCenter", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "organization", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "division", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{Name: "department", Type: TypeString, Mutability: MutabilityReadWrite, Returned: ReturnedDefault},
			{
				Name: "manager", Type: TypeComplex, Mutability: MutabilityReadWrite, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "value", Type: TypeString, Mutability: MutabilityReadWrite},
					{Name: "$ref", Type: TypeReference, Mutability: MutabilityReadWrite},
					{Name: "displayName", Type: TypeString, Mutability: MutabilityReadOnly},
				},
			},
		},
	}
}

// serviceProviderConfigSchema is the RFC 7643 §5 ServiceProviderConfig
// schema, used by discovery operations (spec §4.8.6 GetSchema(s)).
func serviceProviderConfigSchema() SchemaDefinition {
	return SchemaDefinition{
		ID:          values.SchemaURIServiceProviderCfg,
		Name:        "ServiceProviderConfig",
		Description: "SCIM Service Provider Configuration",
		Attributes: []AttributeDefinition{
			{Name: "documentationUri", Type: TypeReference, Mutability: MutabilityReadOnly, Returned: ReturnedDefault},
			{
				Name: "patch", Type: TypeComplex, Mutability: MutabilityReadOnly, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "supported", Type: TypeBoolean, Mutability: MutabilityReadOnly},
				},
			},
			{
				Name: "bulk", Type: TypeComplex, Mutability: MutabilityReadOnly, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "supported", Type: TypeBoolean, Mutability: MutabilityReadOnly},
					{Name: "maxOperations", Type: TypeInteger, Mutability: MutabilityReadOnly},
					{Name: "maxPayloadSize", Type: TypeInteger, Mutability: MutabilityReadOnly},
				},
			},
			{
				Name: "filter", Type: TypeComplex, Mutability: MutabilityReadOnly, Returned: ReturnedDefault,
				SubAttributes: []AttributeDefinition{
					{Name: "supported", Type: TypeBoolean, Mutability: MutabilityReadOnly},
					{Name: "maxResults", Type: TypeInteger, Mutability: MutabilityReadOnly},
				},
			},
		},
	}
}
