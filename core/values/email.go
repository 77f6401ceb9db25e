package values

import (
	"regexp"
	"strings"

	"github.com/xraph/scimcore/internal/scimerr"
)

// emailRegex requires a local part, an '@', and a domain containing at
// least one '.', with no whitespace anywhere.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailAddress is a validated `local@domain` value. Domains must contain at
// least one '.'; no whitespace is permitted anywhere in the value.
type EmailAddress string

// NewEmailAddress validates and constructs an EmailAddress.
func NewEmailAddress(raw string) (EmailAddress, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", scimerr.ValidationError("email", "must not be empty")
	}

	if strings.ContainsAny(trimmed, " \t\n\r") || !emailRegex.MatchString(trimmed) {
		return "", scimerr.ValidationError("email", "must be a valid local@domain address")
	}

	return EmailAddress(trimmed), nil
}

func (e EmailAddress) String() string { return string(e) }
