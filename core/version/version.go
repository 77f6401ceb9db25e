// Package version implements resource versioning (spec §4.4 / RFC 7644
// §3.14): a weak ETag derived deterministically from a resource's
// content, used for optimistic-concurrency conditional requests.
package version

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/xraph/scimcore/internal/scimerr"
)

// Version is an opaque, comparable content fingerprint.
type Version struct {
	token string
}

// digestCache memoizes canonical-content -> SHA-256 token by xxhash key, so
// that re-hashing a resource body already seen (e.g. re-deriving a version
// after a no-op PATCH, spec §8 open question 3) skips the SHA-256
// computation. Keyed by the cheap 64-bit xxhash digest; the canonical bytes
// are stored alongside it so a hash collision falls through to a real
// SHA-256 computation instead of returning a wrong token.
var digestCache sync.Map

type digestEntry struct {
	canonical []byte
	token     string
}

// From computes the Version of a resource body. The caller is expected to
// have already removed the "meta" attribute (version is a property of the
// content, not of itself) before calling From; From does this defensively
// regardless. Computation is deterministic: identical content always
// produces the identical token, regardless of map iteration order, so two
// independently-serialized copies of the same resource compare equal
// (spec §8 property 4).
func From(resource map[string]any) Version {
	trimmed := withoutMeta(resource)

	canonical := canonicalize(trimmed)

	key := xxhash.Sum64(canonical)

	if cached, ok := digestCache.Load(key); ok {
		entry := cached.(digestEntry)
		if bytes.Equal(entry.canonical, canonical) {
			return Version{token: entry.token}
		}
	}

	sum := sha256.Sum256(canonical)
	token := hex.EncodeToString(sum[:])

	digestCache.Store(key, digestEntry{canonical: canonical, token: token})

	return Version{token: token}
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

// canonicalize produces a byte-stable JSON encoding of v: object keys
// sorted, no whitespace. This is what makes From's output independent of
// Go map iteration order.
func canonicalize(v any) []byte {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		var b strings.Builder

		b.WriteByte('{')

		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}

			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			b.Write(canonicalize(t[k]))
		}

		b.WriteByte('}')

		return []byte(b.String())

	case []any:
		var b strings.Builder

		b.WriteByte('[')

		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}

			b.Write(canonicalize(item))
		}

		b.WriteByte(']')

		return []byte(b.String())

	default:
		out, _ := json.Marshal(t)

		return out
	}
}

// String renders v in the weak ETag grammar of RFC 7232 §2.3:
// `W/"<token>"`.
func (v Version) String() string {
	return fmt.Sprintf("W/%q", v.token)
}

// Token returns the bare content-hash token without ETag decoration.
func (v Version) Token() string {
	return v.token
}

// IsZero reports whether v is the unset zero value.
func (v Version) IsZero() bool {
	return v.token == ""
}

// Matches reports whether v and other carry the same token. Weak
// comparison per RFC 7232 §2.3.2: only the token matters, not the
// presence or absence of the W/ prefix on either side (spec §8 property
// 5).
func (v Version) Matches(other Version) bool {
	return v.token != "" && v.token == other.token
}

// Parse accepts any of "W/\"<token>\"", "\"<token>\"", or a bare token,
// and returns the corresponding Version. Parsing is tolerant of client
// ETags that drop the weak-prefix or quoting, since many HTTP
// intermediaries and client libraries normalize these away.
func Parse(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Version{}, scimerr.InvalidRequest("empty version token")
	}

	s = strings.TrimPrefix(s, "W/")
	s = strings.TrimPrefix(s, "w/")
	s = strings.Trim(s, `"`)

	if s == "" {
		return Version{}, scimerr.InvalidRequest("empty version token")
	}

	return Version{token: s}, nil
}
