package auth

import (
	"encoding/hex"
	"testing"
)

func TestUserAddMetadata(t *testing.T) {
	u := &User{}

	u.AddMetadata("plan", "premium").AddMetadata("referrer", "newsletter")

	if u.Metadata["plan"] != "premium" {
		t.Fatalf("expected plan %q, got %v", "premium", u.Metadata["plan"])
	}
	if u.Metadata["referrer"] != "newsletter" {
		t.Fatalf("expected referrer %q, got %v", "newsletter", u.Metadata["referrer"])
	}

	u.AddMetadata("plan", "free")
	if u.Metadata["plan"] != "free" {
		t.Fatalf("expected overwritten plan %q, got %v", "free", u.Metadata["plan"])
	}
}

func TestNewVerificationToken(t *testing.T) {
	token, err := NewVerificationToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(token) != VerificationTokenBytes*2 {
		t.Fatalf("expected %d hex chars, got %d", VerificationTokenBytes*2, len(token))
	}

	if _, err := hex.DecodeString(token); err != nil {
		t.Fatalf("token is not valid hex: %v", err)
	}

	other, err := NewVerificationToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == other {
		t.Fatal("two tokens should never collide")
	}
}
