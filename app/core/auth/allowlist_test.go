package auth

import "testing"

func TestAllowlistCaseInsensitive(t *testing.T) {
	list := NewAllowlist([]string{
		"ben@kernioncognitivelabs.com",
		"lumen@kernioncognitivelabs.com",
	})

	if !list.IsAllowedEmail("BEN@KERNIONCOGNITIVELABS.COM") {
		t.Fatal("uppercase form of an allowed email must match")
	}
	if !list.IsAllowedEmail("lumen@kernioncognitivelabs.com") {
		t.Fatal("exact allowed email must match")
	}
	if list.IsAllowedEmail("") {
		t.Fatal("empty email must never be allowed")
	}
	if list.IsAllowedEmail("random@x.com") {
		t.Fatal("unknown email must not be allowed")
	}
}

func TestAllowlistEmptyFailsClosed(t *testing.T) {
	list := NewAllowlist(nil)
	if list.IsAllowedEmail("ben@kernioncognitivelabs.com") {
		t.Fatal("empty allowlist must reject everyone")
	}
}

func TestAllowlistTrimsConfiguredEntries(t *testing.T) {
	list := NewAllowlist([]string{"  Ben@Kernioncognitivelabs.com  ", ""})
	if !list.IsAllowedEmail("ben@kernioncognitivelabs.com") {
		t.Fatal("configured entries must be trimmed and lowercased")
	}
}
