// Package provider implements the SCIM resource provider (spec §4.5): the
// semantic layer that wraps a storage substrate with schema validation,
// uniqueness enforcement, versioning, and tenant isolation. It generalizes
// authsome's user.Service request flow (validate → business rule →
// mutate → persist → return) from one hard-coded entity to any
// registered SCIM resource type.
package provider

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/scimcore/core/patch"
	"github.com/xraph/scimcore/core/schemaregistry"
	"github.com/xraph/scimcore/core/scimctx"
	"github.com/xraph/scimcore/core/storage"
	"github.com/xraph/scimcore/core/version"
	"github.com/xraph/scimcore/internal/scimerr"
)

const defaultMaxPageSize = 200

// Provider is the semantic SCIM layer. It holds no resource state itself;
// all state lives in the Substrate it wraps.
type Provider struct {
	registry *schemaregistry.Registry
	store    storage.Substrate

	mu    sync.RWMutex
	types map[string]ResourceTypeConfig

	newID func() string
	now   func() time.Time

	maxPageSize int
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithIDGenerator overrides the default xid-based id generator. Intended
// for deterministic tests.
func WithIDGenerator(f func() string) Option {
	return func(p *Provider) { p.newID = f }
}

// WithClock overrides the default time.Now clock. Intended for
// deterministic tests.
func WithClock(f func() time.Time) Option {
	return func(p *Provider) { p.now = f }
}

// WithMaxPageSize overrides the default List page-size clamp of 200.
func WithMaxPageSize(n int) Option {
	return func(p *Provider) { p.maxPageSize = n }
}

// New constructs a Provider over registry and store. No resource types
// are registered; callers must call Register for each type they intend
// to serve.
func New(registry *schemaregistry.Registry, store storage.Substrate, opts ...Option) *Provider {
	p := &Provider{
		registry:    registry,
		store:       store,
		types:       make(map[string]ResourceTypeConfig),
		newID:       func() string { return xid.New().String() },
		now:         time.Now,
		maxPageSize: defaultMaxPageSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Register binds resourceType to a base schema, optional extensions, and
// an allowed-operations capability set (spec §4.5.10).
func (p *Provider) Register(resourceType string, cfg ResourceTypeConfig) error {
	if err := p.registry.BindResourceType(resourceType, cfg.BaseSchemaURI, cfg.ExtensionSchemaURIs...); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.types[resourceType] = cfg

	return nil
}

func (p *Provider) checkCapability(resourceType string, cap Capability) (ResourceTypeConfig, []*schemaregistry.SchemaDefinition, error) {
	p.mu.RLock()
	cfg, ok := p.types[resourceType]
	p.mu.RUnlock()

	if !ok {
		return ResourceTypeConfig{}, nil, scimerr.UnsupportedResourceType(resourceType)
	}

	if !cfg.allows(cap) {
		return ResourceTypeConfig{}, nil, scimerr.UnsupportedOperation(resourceType, string(cap))
	}

	schemas, err := p.registry.SchemasForResourceType(resourceType)
	if err != nil {
		return ResourceTypeConfig{}, nil, err
	}

	return cfg, schemas, nil
}

// Create implements spec §4.5.1.
func (p *Provider) Create(ctx context.Context, resourceType string, payload map[string]any) (map[string]any, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}

	_, schemas, err := p.checkCapability(resourceType, CapabilityCreate)
	if err != nil {
		return nil, err
	}

	clean := stripServerManaged(payload)

	sanitized, err := schemaregistry.Validate(schemas, clean, schemaregistry.ModeCreate)
	if err != nil {
		return nil, err
	}

	id := p.newID()
	sanitized["id"] = id

	if err := p.checkUniqueness(ctx, tenant.TenantID, resourceType, schemas, sanitized, ""); err != nil {
		return nil, err
	}

	now := p.now()

	return p.persist(ctx, tenant.TenantID, resourceType, id, sanitized, now, now)
}

// Get implements spec §4.5.2.
func (p *Provider) Get(ctx context.Context, resourceType, id string) (map[string]any, bool, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return nil, false, err
	}

	if _, _, err := p.checkCapability(resourceType, CapabilityRead); err != nil {
		return nil, false, err
	}

	rec, ok, err := p.store.Get(ctx, storage.Key{Tenant: tenant.TenantID, ResourceType: resourceType, ID: id})
	if err != nil {
		return nil, false, scimerr.ProviderError(err)
	}

	if !ok {
		return nil, false, nil
	}

	return rec.Body, true, nil
}

// GetVersioned implements spec §4.5.3.
func (p *Provider) GetVersioned(ctx context.Context, resourceType, id string) (map[string]any, version.Version, bool, error) {
	body, ok, err := p.Get(ctx, resourceType, id)
	if err != nil || !ok {
		return nil, version.Version{}, ok, err
	}

	return body, version.From(withoutMeta(body)), true, nil
}

// Update implements spec §4.5.4 (full replace / PUT semantics).
func (p *Provider) Update(ctx context.Context, resourceType, id string, payload map[string]any) (map[string]any, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}

	_, schemas, err := p.checkCapability(resourceType, CapabilityUpdate)
	if err != nil {
		return nil, err
	}

	key := storage.Key{Tenant: tenant.TenantID, ResourceType: resourceType, ID: id}

	rec, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, scimerr.ProviderError(err)
	}

	if !ok {
		return nil, scimerr.ResourceNotFound(resourceType, id)
	}

	return p.doUpdate(ctx, tenant.TenantID, resourceType, id, payload, schemas, rec.Body)
}

func (p *Provider) doUpdate(ctx context.Context, tenantID, resourceType, id string, payload map[string]any, schemas []*schemaregistry.SchemaDefinition, previous map[string]any) (map[string]any, error) {
	clean := stripServerManaged(payload)
	clean["id"] = id

	if err := schemaregistry.CheckImmutableUnchanged(schemas, previous, clean); err != nil {
		return nil, err
	}

	sanitized, err := schemaregistry.Validate(schemas, clean, schemaregistry.ModeReplace)
	if err != nil {
		return nil, err
	}

	if err := p.checkUniqueness(ctx, tenantID, resourceType, schemas, sanitized, id); err != nil {
		return nil, err
	}

	created := extractCreated(previous, p.now())

	return p.persist(ctx, tenantID, resourceType, id, sanitized, created, p.now())
}

// ConditionalUpdate implements spec §4.5.5.
func (p *Provider) ConditionalUpdate(ctx context.Context, resourceType, id string, payload map[string]any, expected version.Version) (ConditionalResult, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return ConditionalResult{}, err
	}

	_, schemas, err := p.checkCapability(resourceType, CapabilityUpdate)
	if err != nil {
		return ConditionalResult{}, err
	}

	key := storage.Key{Tenant: tenant.TenantID, ResourceType: resourceType, ID: id}

	rec, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return ConditionalResult{}, scimerr.ProviderError(err)
	}

	if !ok {
		return ConditionalResult{Status: ConditionalNotFound}, nil
	}

	current := version.From(withoutMeta(rec.Body))
	if !current.Matches(expected) {
		return ConditionalResult{Status: ConditionalVersionMismatch, Expected: expected.String(), Current: current.String()}, nil
	}

	persisted, err := p.doUpdate(ctx, tenant.TenantID, resourceType, id, payload, schemas, rec.Body)
	if err != nil {
		return ConditionalResult{}, err
	}

	return ConditionalResult{Status: ConditionalSuccess, Resource: persisted}, nil
}

// Patch implements spec §4.5.6.
func (p *Provider) Patch(ctx context.Context, resourceType, id string, doc patch.Document) (map[string]any, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}

	_, schemas, err := p.checkCapability(resourceType, CapabilityPatch)
	if err != nil {
		return nil, err
	}

	key := storage.Key{Tenant: tenant.TenantID, ResourceType: resourceType, ID: id}

	rec, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, scimerr.ProviderError(err)
	}

	if !ok {
		return nil, scimerr.ResourceNotFound(resourceType, id)
	}

	return p.doPatch(ctx, tenant.TenantID, resourceType, id, doc, schemas, rec.Body)
}

func (p *Provider) doPatch(ctx context.Context, tenantID, resourceType, id string, doc patch.Document, schemas []*schemaregistry.SchemaDefinition, previous map[string]any) (map[string]any, error) {
	patched, err := patch.Apply(schemas, previous, doc)
	if err != nil {
		return nil, err
	}

	patched["id"] = id

	validated, err := schemaregistry.Validate(schemas, patched, schemaregistry.ModePatchResult)
	if err != nil {
		return nil, err
	}

	if err := p.checkUniqueness(ctx, tenantID, resourceType, schemas, validated, id); err != nil {
		return nil, err
	}

	previousVersion := version.From(withoutMeta(previous))
	newVersion := version.From(withoutMeta(validated))

	created := extractCreated(previous, p.now())
	lastModified := p.now()

	// Open question 3 resolution: a no-op PATCH (content byte-identical
	// after applying every operation) leaves lastModified untouched so
	// clients do not observe a spurious bump; the stored version is
	// likewise left as-is since From is a pure function of content.
	if previousVersion.Matches(newVersion) {
		if prevMeta, ok := previous["meta"].(map[string]any); ok {
			if lm, ok := prevMeta["lastModified"].(string); ok {
				if t, err := time.Parse(time.RFC3339, lm); err == nil {
					lastModified = t
				}
			}
		}
	}

	return p.persist(ctx, tenantID, resourceType, id, validated, created, lastModified)
}

// ConditionalPatch implements spec §4.5.6's conditional variant.
func (p *Provider) ConditionalPatch(ctx context.Context, resourceType, id string, doc patch.Document, expected version.Version) (ConditionalResult, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return ConditionalResult{}, err
	}

	_, schemas, err := p.checkCapability(resourceType, CapabilityPatch)
	if err != nil {
		return ConditionalResult{}, err
	}

	key := storage.Key{Tenant: tenant.TenantID, ResourceType: resourceType, ID: id}

	rec, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return ConditionalResult{}, scimerr.ProviderError(err)
	}

	if !ok {
		return ConditionalResult{Status: ConditionalNotFound}, nil
	}

	current := version.From(withoutMeta(rec.Body))
	if !current.Matches(expected) {
		return ConditionalResult{Status: ConditionalVersionMismatch, Expected: expected.String(), Current: current.String()}, nil
	}

	persisted, err := p.doPatch(ctx, tenant.TenantID, resourceType, id, doc, schemas, rec.Body)
	if err != nil {
		return ConditionalResult{}, err
	}

	return ConditionalResult{Status: ConditionalSuccess, Resource: persisted}, nil
}

// Delete implements spec §4.5.7.
func (p *Provider) Delete(ctx context.Context, resourceType, id string) error {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return err
	}

	if _, _, err := p.checkCapability(resourceType, CapabilityDelete); err != nil {
		return err
	}

	key := storage.Key{Tenant: tenant.TenantID, ResourceType: resourceType, ID: id}

	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return scimerr.ProviderError(err)
	}

	if !exists {
		return scimerr.ResourceNotFound(resourceType, id)
	}

	if err := p.store.Delete(ctx, key); err != nil {
		return scimerr.ProviderError(err)
	}

	return nil
}

// ConditionalDelete implements spec §4.5.7's conditional variant.
func (p *Provider) ConditionalDelete(ctx context.Context, resourceType, id string, expected version.Version) (ConditionalStatus, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return ConditionalNotFound, err
	}

	if _, _, err := p.checkCapability(resourceType, CapabilityDelete); err != nil {
		return ConditionalNotFound, err
	}

	key := storage.Key{Tenant: tenant.TenantID, ResourceType: resourceType, ID: id}

	rec, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return ConditionalNotFound, scimerr.ProviderError(err)
	}

	if !ok {
		return ConditionalNotFound, nil
	}

	current := version.From(withoutMeta(rec.Body))
	if !current.Matches(expected) {
		return ConditionalVersionMismatch, nil
	}

	if err := p.store.Delete(ctx, key); err != nil {
		return ConditionalNotFound, scimerr.ProviderError(err)
	}

	return ConditionalSuccess, nil
}

// FindByAttribute implements spec §4.5.9.
func (p *Provider) FindByAttribute(ctx context.Context, resourceType, attribute, value string) (map[string]any, bool, error) {
	tenant, err := scimctx.RequireTenant(ctx)
	if err != nil {
		return nil, false, err
	}

	_, schemas, err := p.checkCapability(resourceType, CapabilityRead)
	if err != nil {
		return nil, false, err
	}

	caseExact := false
	if attr, ok := schemaregistry.FindAttribute(schemas, attribute); ok {
		caseExact = attr.CaseExact
	}

	matches, err := p.store.FindByAttribute(ctx, tenant.TenantID, resourceType, attribute, value, caseExact)
	if err != nil {
		return nil, false, scimerr.ProviderError(err)
	}

	if len(matches) == 0 {
		return nil, false, nil
	}

	return matches[0].Body, true, nil
}

// checkUniqueness probes every schema attribute declared server- or
// globally-unique that is present on resource. Probes are independent
// read-only substrate queries, so they fan out concurrently via
// errgroup rather than running one at a time.
func (p *Provider) checkUniqueness(ctx context.Context, tenantID, resourceType string, schemas []*schemaregistry.SchemaDefinition, resource map[string]any, excludeID string) error {
	type probe struct {
		attr      string
		val       string
		caseExact bool
	}

	var probes []probe

	for _, s := range schemas {
		for _, attr := range s.Attributes {
			if attr.Uniqueness != schemaregistry.UniquenessServer && attr.Uniqueness != schemaregistry.UniquenessGlobal {
				continue
			}

			val, ok := resource[attr.Name].(string)
			if !ok || val == "" {
				continue
			}

			probes = append(probes, probe{attr: attr.Name, val: val, caseExact: attr.CaseExact})
		}
	}

	if len(probes) == 0 {
		return nil
	}

	violations := make([]*scimerr.Error, len(probes))

	g, gctx := errgroup.WithContext(ctx)

	for i, pr := range probes {
		g.Go(func() error {
			matches, err := p.store.FindByAttribute(gctx, tenantID, resourceType, pr.attr, pr.val, pr.caseExact)
			if err != nil {
				return scimerr.ProviderError(err)
			}

			for _, m := range matches {
				if m.Key.ID != excludeID {
					violations[i] = scimerr.UniquenessViolation(pr.attr, pr.val)

					break
				}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, v := range violations {
		if v != nil {
			return v
		}
	}

	return nil
}

// persist populates meta and writes resource to storage, returning the
// persisted copy (spec §4.5.1 step 6-8).
func (p *Provider) persist(ctx context.Context, tenantID, resourceType, id string, resource map[string]any, created, lastModified time.Time) (map[string]any, error) {
	withoutMetaBody := withoutMeta(resource)
	v := version.From(withoutMetaBody)

	out := make(map[string]any, len(resource)+1)
	for k, val := range resource {
		out[k] = val
	}

	out["meta"] = map[string]any{
		"resourceType": resourceType,
		"created":      created.UTC().Format(time.RFC3339),
		"lastModified": lastModified.UTC().Format(time.RFC3339),
		"location":     resourceType + "/" + id,
		"version":      v.String(),
	}

	key := storage.Key{Tenant: tenantID, ResourceType: resourceType, ID: id}

	if err := p.store.Put(ctx, key, out, v.String()); err != nil {
		return nil, scimerr.ProviderError(err)
	}

	return out, nil
}

func stripServerManaged(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))

	for k, v := range payload {
		if strings.EqualFold(k, "id") || strings.EqualFold(k, "meta") {
			continue
		}

		out[k] = v
	}

	return out
}

func withoutMeta(resource map[string]any) map[string]any {
	if _, ok := resource["meta"]; !ok {
		return resource
	}

	out := make(map[string]any, len(resource))

	for k, v := range resource {
		if k == "meta" {
			continue
		}

		out[k] = v
	}

	return out
}

func extractCreated(previous map[string]any, fallback time.Time) time.Time {
	meta, ok := previous["meta"].(map[string]any)
	if !ok {
		return fallback
	}

	s, ok := meta["created"].(string)
	if !ok {
		return fallback
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}

	return t
}

// sortRecords applies best-effort in-memory sorting by attribute name,
// per spec §4.5.8: string ordering is case-insensitive unless the
// attribute's schema definition marks it caseExact, numeric ordering for
// numbers; an unknown or complex sort_by is ignored rather than rejected.
func sortRecords(resources []map[string]any, sortBy, sortOrder string, caseExact bool) {
	if sortBy == "" {
		return
	}

	descending := strings.EqualFold(sortOrder, "descending")

	sort.SliceStable(resources, func(i, j int) bool {
		less := lessByAttribute(resources[i][sortBy], resources[j][sortBy], caseExact)
		if descending {
			return lessByAttribute(resources[j][sortBy], resources[i][sortBy], caseExact)
		}

		return less
	})
}

func lessByAttribute(a, b any, caseExact bool) bool {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			if caseExact {
				return as < bs
			}

			return strings.ToLower(as) < strings.ToLower(bs)
		}
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)

	if aok && bok {
		return af < bf
	}

	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
