package auth

import "strings"

// Allowlist is the fixed set of identities permitted to sign in
// interactively. Matching is case-insensitive and exact.
type Allowlist struct {
	emails map[string]struct{}
}

func NewAllowlist(emails []string) *Allowlist {
	set := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			set[email] = struct{}{}
		}
	}
	return &Allowlist{emails: set}
}

// IsAllowedEmail reports whether the email may sign in. Empty input is
// never allowed.
func (a *Allowlist) IsAllowedEmail(email string) bool {
	if email == "" {
		return false
	}
	_, ok := a.emails[strings.ToLower(email)]
	return ok
}
