package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/auth"
)

func TestPasswordHashing(t *testing.T) {
	password := "pass123"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestHS256SignerRoundTrip(t *testing.T) {
	signer := NewHS256Signer("test-secret")
	claims := auth.Claims{
		Sub:      "user-1",
		SchoolID: "school-1",
		Role:     "owner",
		Iat:      time.Now().Unix(),
		Exp:      time.Now().Add(time.Hour).Unix(),
	}
	token, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	got, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got.Sub != claims.Sub || got.SchoolID != claims.SchoolID || got.Role != claims.Role {
		t.Fatalf("claims mismatch: %+v", got)
	}

	if _, err := signer.Verify(token + "x"); err == nil {
		t.Fatal("expected verification failure for tampered token")
	}
}

func TestHS256SignerHasNoJWKS(t *testing.T) {
	signer := NewHS256Signer("test-secret")
	if jwks := signer.JWKS(); jwks != nil {
		t.Fatalf("expected nil jwks for hs256, got %v", jwks)
	}
	if signer.CanRotate() {
		t.Fatal("hs256 signer must not support rotation")
	}
}

func TestRegisterValidation(t *testing.T) {
	h := NewAuthHandler(NewHS256Signer("s"), nil, nil, nil, nil, nil, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/register", nil)
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":""}`))
	rec = httptest.NewRecorder()
	h.Register(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing credentials, got %d", rec.Code)
	}
}

func TestMeRejectsMissingToken(t *testing.T) {
	h := NewAuthHandler(NewHS256Signer("s"), nil, nil, nil, nil, nil, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestMeReturnsClaims(t *testing.T) {
	signer := NewHS256Signer("s")
	h := NewAuthHandler(signer, nil, nil, nil, nil, nil, time.Hour)

	token, err := signer.Sign(auth.Claims{
		Sub:      "user-9",
		SchoolID: "school-9",
		Role:     "teacher",
		Iat:      time.Now().Unix(),
		Exp:      time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "user-9") || !strings.Contains(body, "school-9") {
		t.Fatalf("unexpected body %s", body)
	}
}
