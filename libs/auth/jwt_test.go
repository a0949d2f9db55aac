package auth

import (
	"testing"
	"time"
)

func TestSignAndVerifyHS256(t *testing.T) {
	claims := Claims{
		Sub:      "user-1",
		SchoolID: "school-1",
		Role:     "owner",
		Iat:      time.Now().Unix(),
		Exp:      time.Now().Add(time.Hour).Unix(),
	}
	token, err := SignHS256(claims, "secret")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}

	parsed, err := ParseAndVerifyHS256(token, "secret")
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.SchoolID != claims.SchoolID || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestVerifyHS256RejectsWrongSecret(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "user-1", Exp: time.Now().Add(time.Hour).Unix()}, "right")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong"); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestVerifyHS256RejectsExpired(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "user-1", Exp: time.Now().Add(-time.Minute).Unix()}, "secret")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseHeader(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "user-1", Exp: time.Now().Add(time.Hour).Unix()}, "secret")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}
	header, err := ParseHeader(token)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if header.Alg != "HS256" {
		t.Fatalf("expected HS256, got %s", header.Alg)
	}
	if _, err := ParseHeader("not-a-token"); err == nil {
		t.Fatal("expected malformed token to fail")
	}
}
