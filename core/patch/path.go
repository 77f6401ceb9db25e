package patch

import (
	"strconv"
	"strings"

	"github.com/xraph/scimcore/internal/scimerr"
)

// Segment is one dot-separated component of a parsed PATCH path:
// `segment := attrName ( '[' filter ']' )?` (spec §4.7.1). AttrName may
// itself be namespaced (`<extensionUri>:<identifier>`), in which case
// SchemaURI is populated and Name holds only the trailing identifier.
type Segment struct {
	SchemaURI string
	Name      string
	Filter    *Filter
}

// Path is a fully parsed PATCH path: a sequence of segments, each
// optionally filtered.
type Path struct {
	Segments []Segment
}

// ParsePath parses raw per the grammar in spec §4.7.1. An empty string is
// a valid, empty Path (used by whole-resource add/replace).
func ParsePath(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Path{}, nil
	}

	segments, err := splitSegments(raw)
	if err != nil {
		return Path{}, err
	}

	out := make([]Segment, 0, len(segments))

	for _, s := range segments {
		seg, err := parseSegment(s)
		if err != nil {
			return Path{}, err
		}

		out = append(out, seg)
	}

	return Path{Segments: out}, nil
}

// splitSegments splits raw on '.' characters that are not inside a
// bracketed filter expression (filters may themselves contain quoted
// strings with dots, so we track bracket depth and quote state).
func splitSegments(raw string) ([]string, error) {
	var (
		segments []string
		depth    int
		inQuote  bool
		start    int
	)

	for i, r := range raw {
		switch r {
		case '"':
			inQuote = !inQuote
		case '[':
			if !inQuote {
				depth++
			}
		case ']':
			if !inQuote {
				depth--

				if depth < 0 {
					return nil, scimerr.InvalidPath(raw, "unbalanced ']'")
				}
			}
		case '.':
			if !inQuote && depth == 0 {
				segments = append(segments, raw[start:i])
				start = i + 1
			}
		}
	}

	if depth != 0 {
		return nil, scimerr.InvalidPath(raw, "unbalanced '['")
	}

	segments = append(segments, raw[start:])

	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return nil, scimerr.InvalidPath(raw, "empty path segment")
		}
	}

	return segments, nil
}

func parseSegment(s string) (Segment, error) {
	name := s

	var filterExpr string

	if idx := strings.IndexByte(s, '['); idx >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Segment{}, scimerr.InvalidPath(s, "malformed filter brackets")
		}

		name = s[:idx]
		filterExpr = s[idx+1 : len(s)-1]
	}

	schemaURI, attrName := splitNamespaced(name)

	seg := Segment{SchemaURI: schemaURI, Name: attrName}

	if filterExpr != "" {
		f, err := ParseFilter(filterExpr)
		if err != nil {
			return Segment{}, err
		}

		seg.Filter = &f
	}

	return seg, nil
}

// splitNamespaced splits "urn:...:2.0:User:employeeNumber" into its
// schema URI and trailing attribute identifier, on the last colon. A
// plain identifier with no colon returns an empty schema URI.
func splitNamespaced(name string) (schemaURI, attrName string) {
	idx := strings.LastIndex(name, ":")
	if idx < 0 {
		return "", name
	}

	return name[:idx], name[idx+1:]
}

// String renders p back into spec wire form, used for error context.
func (p Path) String() string {
	var b strings.Builder

	for i, seg := range p.Segments {
		if i > 0 {
			b.WriteByte('.')
		}

		if seg.SchemaURI != "" {
			b.WriteString(seg.SchemaURI)
			b.WriteByte(':')
		}

		b.WriteString(seg.Name)

		if seg.Filter != nil {
			b.WriteByte('[')
			b.WriteString(seg.Filter.String())
			b.WriteByte(']')
		}
	}

	return b.String()
}

// IsEmpty reports whether p has no segments (a whole-resource path).
func (p Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

func parseLiteral(raw string) (any, error) {
	raw = strings.TrimSpace(raw)

	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	if strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2 {
		return raw[1 : len(raw)-1], nil
	}

	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n, nil
	}

	return nil, scimerr.InvalidPath(raw, "unparseable filter literal")
}
