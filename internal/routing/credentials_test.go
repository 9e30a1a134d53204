package routing

import "testing"

func TestSharedCredentialVerifier(t *testing.T) {
	v := NewSharedCredentialVerifier("8448298087", "123456")
	tests := []struct {
		text string
		want CredentialMatch
	}{
		{"8448298087 123456", CredentialsValid},
		{"pw=123456;id=8448298087", CredentialsValid},
		{"x8448298087123456x", CredentialsValid},
		{"8448298087", CredentialsInvalid},
		{"123456", CredentialsInvalid},
		{"844829808 12345", CredentialsAbsent},
		{"", CredentialsAbsent},
	}
	for _, tt := range tests {
		if got := v.Verify(tt.text); got != tt.want {
			t.Fatalf("Verify(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestSharedCredentialVerifierIsCaseSensitive(t *testing.T) {
	v := NewSharedCredentialVerifier("AcmeCo", "Hunter2")
	if got := v.Verify("acmeco hunter2"); got != CredentialsAbsent {
		t.Fatalf("expected case-sensitive miss, got %s", got)
	}
	if got := v.Verify("AcmeCo hunter2"); got != CredentialsInvalid {
		t.Fatalf("expected partial match, got %s", got)
	}
}

func TestSharedCredentialVerifierEmptyLiterals(t *testing.T) {
	v := NewSharedCredentialVerifier("", "")
	if got := v.Verify("anything at all"); got != CredentialsAbsent {
		t.Fatalf("empty literals must never match, got %s", got)
	}
	var nilVerifier *SharedCredentialVerifier
	if got := nilVerifier.Verify("8448298087 123456"); got != CredentialsAbsent {
		t.Fatalf("nil verifier must report absent, got %s", got)
	}
}
