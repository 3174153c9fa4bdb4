package auth

import (
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	token, exp, err := IssueSession("admin", "admin", "classmark", "key", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if exp.Before(time.Now()) {
		t.Fatal("expiry in the past")
	}

	claims, err := Parse(token, "key", "classmark")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "admin" || claims.Role != "admin" {
		t.Fatalf("claims: %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, _, err := IssueSession("admin", "admin", "classmark", "key", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(token, "other-key", "classmark"); err == nil {
		t.Fatal("want error for wrong signing key")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	token, _, err := IssueSession("admin", "admin", "someone-else", "key", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(token, "key", "classmark"); err == nil {
		t.Fatal("want error for issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, _, err := IssueSession("admin", "admin", "classmark", "key", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(token, "key", "classmark"); err == nil {
		t.Fatal("want error for expired token")
	}
}
