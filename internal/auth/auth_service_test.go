package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newKeyPair(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, pemBytes
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestValidateToken(t *testing.T) {
	key, pemBytes := newKeyPair(t)
	service, err := NewAuthService(pemBytes)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	token := signToken(t, key, jwt.RegisteredClaims{
		Subject:   "user_abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user_abc" {
		t.Errorf("subject = %q", claims.Subject)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	key, pemBytes := newKeyPair(t)
	service, err := NewAuthService(pemBytes)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	token := signToken(t, key, jwt.RegisteredClaims{
		Subject:   "user_abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	if _, err := service.ValidateToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	_, pemBytes := newKeyPair(t)
	otherKey, _ := newKeyPair(t)
	service, err := NewAuthService(pemBytes)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	token := signToken(t, otherKey, jwt.RegisteredClaims{
		Subject:   "user_abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if _, err := service.ValidateToken(token); err == nil {
		t.Fatal("expected error for token signed with another key")
	}
}

func TestValidateTokenRejectsHMAC(t *testing.T) {
	_, pemBytes := newKeyPair(t)
	service, err := NewAuthService(pemBytes)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user_abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hmac token: %v", err)
	}
	if _, err := service.ValidateToken(hmacToken); err == nil {
		t.Fatal("expected error for unexpected signing method")
	}
}

func TestValidateTokenRejectsMissingSubject(t *testing.T) {
	key, pemBytes := newKeyPair(t)
	service, err := NewAuthService(pemBytes)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	token := signToken(t, key, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if _, err := service.ValidateToken(token); err == nil {
		t.Fatal("expected error for token without subject")
	}
}

func TestNewAuthServiceRejectsBadInput(t *testing.T) {
	if _, err := NewAuthService(nil); err == nil {
		t.Fatal("expected error for empty pem")
	}
	if _, err := NewAuthService([]byte("garbage")); err == nil {
		t.Fatal("expected error for invalid pem")
	}
}
