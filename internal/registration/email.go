package registration

import (
	"net/mail"
	"strings"
)

// dotInsensitiveDomains lists webmail providers that ignore dots in the
// local part, so alias variants of the same mailbox collapse to one identity.
var dotInsensitiveDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
}

// ValidateEmail reports whether raw is a syntactically valid bare mailbox
// address. No network or MX verification; malformed input fails closed.
func ValidateEmail(raw string) bool {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return false
	}
	// ParseAddress also accepts "Name <box@domain>" forms; registration
	// only takes the bare address.
	return addr.Address == raw
}

// NormalizeEmail canonicalizes an address for identity and dedup purposes.
// The result is lower-case, dot-stripped in the local part for
// dot-insensitive webmail domains, and truncated at the first sub-address
// tag. The delivery address the user typed is a separate concern.
//
// The + is matched as a literal substring, never as a pattern character.
// Idempotent: NormalizeEmail(NormalizeEmail(x)) == NormalizeEmail(x).
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]

	if dotInsensitiveDomains[domain] {
		local = strings.ReplaceAll(local, ".", "")
	}
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}

	return local + "@" + domain
}
