package security

import (
	"strings"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("u1", []string{"USER", "ADMIN"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}
	if len(claims.Roles) != 2 || claims.Roles[1] != "ADMIN" {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	token, err := GenerateToken("u1", nil)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err = ValidateToken(tampered); err == nil {
		t.Fatal("tampered token should be rejected")
	}

	if _, err = ValidateToken("not-a-token"); err == nil {
		t.Fatal("malformed token should be rejected")
	}
}

func TestExtractSignature(t *testing.T) {
	token, err := GenerateToken("u1", nil)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	sig, err := ExtractSignature(token)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.HasSuffix(token, "."+sig) {
		t.Fatal("signature should be the token's final segment")
	}

	if _, err = ExtractSignature("only.two"); err == nil {
		t.Fatal("malformed token should be rejected")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err = CheckPasswordHash("s3cret", hash); err != nil {
		t.Fatalf("correct password should verify: %v", err)
	}
	if err = CheckPasswordHash("wrong", hash); err == nil {
		t.Fatal("wrong password should not verify")
	}
}
