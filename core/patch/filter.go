package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xraph/scimcore/internal/scimerr"
)

// CompareOp enumerates the comparison operators a filter term may use
// (spec §4.7.1). The grammar requires at least eq/and; every operator
// listed is implemented here.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpCo CompareOp = "co"
	OpSw CompareOp = "sw"
	OpEw CompareOp = "ew"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
	OpPr CompareOp = "pr"
)

// Connector joins consecutive filter terms.
type Connector string

const (
	ConnectorAnd Connector = "and"
	ConnectorOr  Connector = "or"
)

// Term is a single `attrName op literal` comparison.
type Term struct {
	Attr    string
	Op      CompareOp
	Literal any
}

// Filter is a left-to-right chain of Terms joined by Connectors; the
// grammar in spec §4.7.1 defines no operator precedence, so terms are
// combined strictly in the order written.
type Filter struct {
	Terms      []Term
	Connectors []Connector
}

// ParseFilter parses a bracket-interior filter expression, e.g.
// `type eq "work" and primary eq true`.
func ParseFilter(raw string) (Filter, error) {
	tokens, err := tokenizeFilter(raw)
	if err != nil {
		return Filter{}, err
	}

	if len(tokens) == 0 {
		return Filter{}, scimerr.InvalidPath(raw, "empty filter expression")
	}

	var f Filter

	i := 0

	for i < len(tokens) {
		term, consumed, err := parseTerm(tokens[i:], raw)
		if err != nil {
			return Filter{}, err
		}

		f.Terms = append(f.Terms, term)
		i += consumed

		if i >= len(tokens) {
			break
		}

		conn := strings.ToLower(tokens[i])
		if conn != string(ConnectorAnd) && conn != string(ConnectorOr) {
			return Filter{}, scimerr.InvalidPath(raw, fmt.Sprintf("expected 'and'/'or', got %q", tokens[i]))
		}

		f.Connectors = append(f.Connectors, Connector(conn))
		i++
	}

	return f, nil
}

func parseTerm(tokens []string, raw string) (Term, int, error) {
	if len(tokens) < 2 {
		return Term{}, 0, scimerr.InvalidPath(raw, "incomplete filter term")
	}

	attr := tokens[0]
	op := CompareOp(strings.ToLower(tokens[1]))

	switch op {
	case OpEq, OpNe, OpCo, OpSw, OpEw, OpGt, OpGe, OpLt, OpLe:
		if len(tokens) < 3 {
			return Term{}, 0, scimerr.InvalidPath(raw, "missing filter literal")
		}

		lit, err := parseLiteral(tokens[2])
		if err != nil {
			return Term{}, 0, err
		}

		return Term{Attr: attr, Op: op, Literal: lit}, 3, nil

	case OpPr:
		return Term{Attr: attr, Op: op}, 2, nil

	default:
		return Term{}, 0, scimerr.InvalidPath(raw, fmt.Sprintf("unknown filter operator %q", tokens[1]))
	}
}

// tokenizeFilter splits raw on space characters, keeping quoted strings
// intact.
func tokenizeFilter(raw string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
	)

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}

	if inQuote {
		return nil, scimerr.InvalidPath(raw, "unterminated quoted literal")
	}

	flush()

	return tokens, nil
}

// Evaluate reports whether item (one element of a multi-valued
// attribute) satisfies f.
func (f Filter) Evaluate(item map[string]any) bool {
	if len(f.Terms) == 0 {
		return false
	}

	result := evaluateTerm(f.Terms[0], item)

	for i, conn := range f.Connectors {
		next := evaluateTerm(f.Terms[i+1], item)

		if conn == ConnectorAnd {
			result = result && next
		} else {
			result = result || next
		}
	}

	return result
}

func evaluateTerm(t Term, item map[string]any) bool {
	v, present := lookupCaseInsensitive(item, t.Attr)

	if t.Op == OpPr {
		return present && v != nil
	}

	if !present {
		return false
	}

	switch t.Op {
	case OpEq:
		return compareEqual(v, t.Literal)
	case OpNe:
		return !compareEqual(v, t.Literal)
	case OpCo, OpSw, OpEw:
		vs, ok1 := v.(string)
		ls, ok2 := t.Literal.(string)

		if !ok1 || !ok2 {
			return false
		}

		switch t.Op {
		case OpCo:
			return strings.Contains(strings.ToLower(vs), strings.ToLower(ls))
		case OpSw:
			return strings.HasPrefix(strings.ToLower(vs), strings.ToLower(ls))
		default:
			return strings.HasSuffix(strings.ToLower(vs), strings.ToLower(ls))
		}
	case OpGt, OpGe, OpLt, OpLe:
		return compareOrdered(v, t.Literal, t.Op)
	default:
		return false
	}
}

func compareEqual(a, b any) bool {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.EqualFold(as, bs)
		}
	}

	af, aok := toNumber(a)
	bf, bok := toNumber(b)

	if aok && bok {
		return af == bf
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareOrdered(a, b any, op CompareOp) bool {
	af, aok := toNumber(a)
	bf, bok := toNumber(b)

	if aok && bok {
		switch op {
		case OpGt:
			return af > bf
		case OpGe:
			return af >= bf
		case OpLt:
			return af < bf
		default:
			return af <= bf
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)

	if aok && bok {
		switch op {
		case OpGt:
			return as > bs
		case OpGe:
			return as >= bs
		case OpLt:
			return as < bs
		default:
			return as <= bs
		}
	}

	return false
}

func toNumber(v any) (float64, bool) {
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

func lookupCaseInsensitive(m map[string]any, name string) (any, bool) {
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}

	return nil, false
}

// String renders f back into wire form.
func (f Filter) String() string {
	var b strings.Builder

	for i, t := range f.Terms {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(string(f.Connectors[i-1]))
			b.WriteByte(' ')
		}

		b.WriteString(t.Attr)
		b.WriteByte(' ')
		b.WriteString(string(t.Op))

		if t.Op != OpPr {
			b.WriteByte(' ')

			switch lv := t.Literal.(type) {
			case string:
				b.WriteString(strconv.Quote(lv))
			default:
				fmt.Fprintf(&b, "%v", lv)
			}
		}
	}

	return b.String()
}
