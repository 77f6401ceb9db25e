package version

import "testing"

func TestFrom_IsDeterministicAcrossMapOrder(t *testing.T) {
	a := map[string]any{"userName": "bjensen", "active": true, "id": "1"}
	b := map[string]any{"id": "1", "active": true, "userName": "bjensen"}

	va := From(a)
	vb := From(b)

	if !va.Matches(vb) {
		t.Errorf("expected identical content to produce matching versions, got %s vs %s", va, vb)
	}
}

func TestFrom_DiffersOnContentChange(t *testing.T) {
	a := map[string]any{"userName": "bjensen"}
	b := map[string]any{"userName": "bjensen2"}

	if From(a).Matches(From(b)) {
		t.Error("expected different content to produce different versions")
	}
}

func TestFrom_IgnoresMeta(t *testing.T) {
	a := map[string]any{"userName": "bjensen", "meta": map[string]any{"version": "W/\"abc\""}}
	b := map[string]any{"userName": "bjensen", "meta": map[string]any{"version": "W/\"xyz\""}}

	if !From(a).Matches(From(b)) {
		t.Error("expected meta to be excluded from version computation")
	}
}

func TestString_RoundTripsThroughParse(t *testing.T) {
	v := From(map[string]any{"userName": "bjensen"})

	parsed, err := Parse(v.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !v.Matches(parsed) {
		t.Errorf("expected round-trip to preserve token: %s vs %s", v, parsed)
	}
}

func TestParse_TolerantOfMissingPrefixAndQuotes(t *testing.T) {
	v := From(map[string]any{"userName": "bjensen"})

	forms := []string{
		v.String(),
		v.Token(),
		`"` + v.Token() + `"`,
	}

	for _, f := range forms {
		parsed, err := Parse(f)
		if err != nil {
			t.Fatalf("unexpected error parsing %q: %v", f, err)
		}

		if !v.Matches(parsed) {
			t.Errorf("expected %q to parse to matching version", f)
		}
	}
}

func TestParse_RejectsEmpty(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Error("expected error for empty input")
	}

	if _, err := Parse(`W/""`); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestMatches_AlwaysEmptyForZeroValue(t *testing.T) {
	var zero Version

	other := From(map[string]any{"a": 1})

	if zero.Matches(other) {
		t.Error("zero version should never match a real version")
	}

	if !zero.IsZero() {
		t.Error("expected zero value to report IsZero")
	}
}
