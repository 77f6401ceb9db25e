// Package memory implements an in-process storage.Substrate backed by
// Go maps guarded by a per-tenant RWMutex. It is the reference substrate
// used by tests and examples; production deployments are expected to
// supply a durable implementation of the same interface.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/scimcore/core/storage"
	"github.com/xraph/scimcore/internal/scimerr"
)

// tenantShard holds every record for one tenant. It keeps no secondary
// indexes: FindByAttribute and List's filter scan the records of the
// requested resource type.
type tenantShard struct {
	mu      sync.RWMutex
	records map[string]map[string]storage.Record // resourceType -> id -> record
}

func newTenantShard() *tenantShard {
	return &tenantShard{records: make(map[string]map[string]storage.Record)}
}

// Store is the in-memory Substrate implementation.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*tenantShard
}

// New constructs an empty Store.
func New() *Store {
	return &Store{tenants: make(map[string]*tenantShard)}
}

func (s *Store) shard(tenant string) *tenantShard {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenant]
	if !ok {
		t = newTenantShard()
		s.tenants[tenant] = t
	}

	return t
}

// Put inserts or overwrites the record at key.
func (s *Store) Put(_ context.Context, key storage.Key, body map[string]any, ver string) error {
	shard := s.shard(key.Tenant)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	bucket, ok := shard.records[key.ResourceType]
	if !ok {
		bucket = make(map[string]storage.Record)
		shard.records[key.ResourceType] = bucket
	}

	bucket[key.ID] = storage.Record{Key: key, Body: deepCopy(body), Version: ver}

	return nil
}

// Get returns the record at key, if present.
func (s *Store) Get(_ context.Context, key storage.Key) (storage.Record, bool, error) {
	shard := s.shard(key.Tenant)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	bucket, ok := shard.records[key.ResourceType]
	if !ok {
		return storage.Record{}, false, nil
	}

	rec, ok := bucket[key.ID]
	if !ok {
		return storage.Record{}, false, nil
	}

	return storage.Record{Key: rec.Key, Body: deepCopy(rec.Body), Version: rec.Version}, true, nil
}

// Delete removes the record at key. Deleting a missing key is not an
// error: storage has no opinion on whether the caller should have
// checked existence first.
func (s *Store) Delete(_ context.Context, key storage.Key) error {
	shard := s.shard(key.Tenant)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if bucket, ok := shard.records[key.ResourceType]; ok {
		delete(bucket, key.ID)
	}

	return nil
}

// Exists reports whether a record is stored at key.
func (s *Store) Exists(_ context.Context, key storage.Key) (bool, error) {
	shard := s.shard(key.Tenant)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	bucket, ok := shard.records[key.ResourceType]
	if !ok {
		return false, nil
	}

	_, ok = bucket[key.ID]

	return ok, nil
}

// Count returns the number of records stored for tenant/resourceType.
func (s *Store) Count(_ context.Context, tenant, resourceType string) (int, error) {
	shard := s.shard(tenant)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	return len(shard.records[resourceType]), nil
}

// List returns a page of records matching q, computed concurrently with
// the total-count query via errgroup since both scans are independent
// read-only passes over the same bucket snapshot.
func (s *Store) List(ctx context.Context, q storage.ListQuery) (storage.ListResult, error) {
	shard := s.shard(q.Tenant)

	shard.mu.RLock()
	bucket := shard.records[q.ResourceType]
	snapshot := make([]storage.Record, 0, len(bucket))

	for _, rec := range bucket {
		snapshot = append(snapshot, storage.Record{Key: rec.Key, Body: deepCopy(rec.Body), Version: rec.Version})
	}
	shard.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Key.ID < snapshot[j].Key.ID })

	var (
		matched []storage.Record
		total   int
	)

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		matched = filterByAttribute(snapshot, q.FilterAttribute, q.FilterValue, q.FilterCaseExact)

		return nil
	})

	g.Go(func() error {
		total = len(filterByAttribute(snapshot, q.FilterAttribute, q.FilterValue, q.FilterCaseExact))

		return nil
	})

	if err := g.Wait(); err != nil {
		return storage.ListResult{}, scimerr.ProviderError(err)
	}

	start := q.StartIndex
	if start < 0 {
		start = 0
	}

	if start > len(matched) {
		start = len(matched)
	}

	end := start + q.Count
	if q.Count <= 0 || end > len(matched) {
		end = len(matched)
	}

	return storage.ListResult{Records: matched[start:end], TotalResults: total}, nil
}

func filterByAttribute(records []storage.Record, attr, value string, caseExact bool) []storage.Record {
	if attr == "" {
		return records
	}

	out := make([]storage.Record, 0, len(records))

	for _, rec := range records {
		v, ok := rec.Body[attr]
		if !ok {
			continue
		}

		if s, ok := v.(string); ok && stringsMatch(s, value, caseExact) {
			out = append(out, rec)
		}
	}

	return out
}

// FindByAttribute returns every record whose top-level attribute equals
// value. Comparison is case-insensitive unless caseExact is set, matching
// the RFC 7643 §2.2 CaseExact flag of whichever attribute the caller is
// probing (e.g. userName is case-insensitive by default; an extension
// attribute marked caseExact is not).
func (s *Store) FindByAttribute(_ context.Context, tenant, resourceType, attribute, value string, caseExact bool) ([]storage.Record, error) {
	shard := s.shard(tenant)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	bucket := shard.records[resourceType]

	out := make([]storage.Record, 0)

	for _, rec := range bucket {
		v, ok := rec.Body[attribute]
		if !ok {
			continue
		}

		if s, ok := v.(string); ok && stringsMatch(s, value, caseExact) {
			out = append(out, storage.Record{Key: rec.Key, Body: deepCopy(rec.Body), Version: rec.Version})
		}
	}

	return out, nil
}

func stringsMatch(a, b string, caseExact bool) bool {
	if caseExact {
		return a == b
	}

	return strings.EqualFold(a, b)
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
