package entity

import "strings"

var dotInsensitiveDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
}

// NormalizeEmail canonicalizes an email address for matching.
// Provider feeds and local records may spell the same mailbox
// differently: mixed case, comma-joined multi-address values,
// "+tag" suffixes, and dotted gmail local parts all collapse to
// one key.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}

	if i := strings.Index(email, ","); i >= 0 {
		email = strings.TrimSpace(email[:i])
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	local, domain := email[:at], email[at+1:]

	if i := strings.Index(local, "+"); i >= 0 {
		local = local[:i]
	}

	if dotInsensitiveDomains[domain] {
		local = strings.ReplaceAll(local, ".", "")
	}

	return local + "@" + domain
}
