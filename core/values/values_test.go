package values

import "testing"

func TestNewEmailAddress(t *testing.T) {
	valid := []string{
		"user@example.com",
		"USER+tag@Example.co",
		"a.b_c-d+1@sub.example.org",
	}
	invalid := []string{
		"",
		"user@",
		"user@domain",
		"user@.com",
		"userdomain.com",
		"us er@example.com",
	}

	for _, e := range valid {
		if _, err := NewEmailAddress(e); err != nil {
			t.Errorf("expected %q to be valid, got error: %v", e, err)
		}
	}

	for _, e := range invalid {
		if _, err := NewEmailAddress(e); err == nil {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}

func TestNewResourceID_RejectsEmpty(t *testing.T) {
	if _, err := NewResourceID(""); err == nil {
		t.Error("expected empty id to be rejected")
	}

	id, err := NewResourceID("abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if id.String() != "abc123" {
		t.Errorf("expected abc123, got %s", id.String())
	}
}

func TestUserName_EqualFold(t *testing.T) {
	a, _ := NewUserName("Alice")
	b, _ := NewUserName("alice")

	if !a.EqualFold(b) {
		t.Error("expected case-insensitive equality")
	}

	c, _ := NewUserName("bob")
	if a.EqualFold(c) {
		t.Error("expected inequality")
	}
}

func TestNewUserName_TrimsAndRejectsBlank(t *testing.T) {
	u, err := NewUserName("  bob  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if u.String() != "bob" {
		t.Errorf("expected trimmed 'bob', got %q", u.String())
	}

	if _, err := NewUserName("   "); err == nil {
		t.Error("expected whitespace-only username to be rejected")
	}
}

func TestNewSchemaURI(t *testing.T) {
	valid := []string{
		SchemaURICoreUser,
		SchemaURICoreGroup,
		SchemaURIEnterpriseUser,
		"urn:example:schemas:extension:2.0:CustomType",
	}
	for _, s := range valid {
		if _, err := NewSchemaURI(s); err != nil {
			t.Errorf("expected %q to be valid, got %v", s, err)
		}
	}

	invalid := []string{"", "not-a-urn", "urn:onlyone"}
	for _, s := range invalid {
		if _, err := NewSchemaURI(s); err == nil {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

