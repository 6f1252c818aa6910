package auth

import (
	"errors"
	"testing"
	"time"
)

func setSecret(t *testing.T, value string) {
	t.Helper()
	t.Setenv(secretEnvVariable, value)
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndValidateToken(t *testing.T) {
	setSecret(t, "unit-test-secret")

	token, err := GenerateToken("actor-1", RoleComplianceAdmin, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "actor-1" {
		t.Fatalf("subject = %s, want actor-1", claims.Subject)
	}
	if claims.Role != string(RoleComplianceAdmin) {
		t.Fatalf("role = %s, want COMPLIANCE_ADMIN", claims.Role)
	}
	if claims.Issuer != issuer {
		t.Fatalf("issuer = %s, want %s", claims.Issuer, issuer)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	setSecret(t, "unit-test-secret")

	token, err := GenerateToken("actor-1", RoleReviewer, time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	setSecret(t, "first-secret")
	token, err := GenerateToken("actor-1", RoleReviewer, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	setSecret(t, "second-secret")
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenRequiresConfiguredSecret(t *testing.T) {
	setSecret(t, "")
	if _, err := GenerateToken("actor-1", RoleReviewer, time.Hour); err == nil {
		t.Fatal("expected error without configured secret")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	setSecret(t, "unit-test-secret")
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", token, err)
		}
	}
}
