package main

import (
	"strings"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuth([]byte("test-secret"))

	token, err := auth.GenerateToken(42, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	userID, username, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != 42 || username != "Alice" {
		t.Errorf("claims lost: %d %q", userID, username)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewAuth([]byte("secret-a"))
	verifier := NewAuth([]byte("secret-b"))

	token, err := issuer.GenerateToken(1, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := verifier.ValidateToken(token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestTokenGarbage(t *testing.T) {
	auth := NewAuth(nil)
	if _, _, err := auth.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token must be rejected")
	}
	if _, _, err := auth.ValidateToken(""); err == nil {
		t.Error("empty token must be rejected")
	}
}

func TestGenerateGuestName(t *testing.T) {
	name := GenerateGuestName()
	if !strings.HasPrefix(name, "Guest_") {
		t.Errorf("unexpected guest name %q", name)
	}
	if name == GenerateGuestName() && name == GenerateGuestName() {
		t.Error("guest names should vary")
	}
}
