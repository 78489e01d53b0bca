package utils

import (
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	password := "shared-access-key"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("Hash should not match plaintext password")
	}

	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("Wrong password should not match hash")
	}
}

func TestSessionToken(t *testing.T) {
	secret := "test-secret-key-12345"

	token, err := GenerateSessionToken("  Maria  ", secret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	name, ok := OperatorFromClaims(claims)
	if !ok || name != "Maria" {
		t.Errorf("Expected operator Maria, got %q (ok=%v)", name, ok)
	}

	if _, err := ValidateToken(token, "wrong-key"); err == nil {
		t.Error("Validation should fail with wrong key")
	}
}

func TestExpiredSessionToken(t *testing.T) {
	token, err := GenerateSessionToken("Maria", "k", -time.Minute)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := ValidateToken(token, "k"); err == nil {
		t.Error("Expired token should not validate")
	}
}

func TestValidOperatorName(t *testing.T) {
	cases := map[string]bool{
		"":       false,
		"  ab  ": false,
		"Ana":    true,
		"João":   true,
	}
	for name, want := range cases {
		if got := ValidOperatorName(name); got != want {
			t.Errorf("ValidOperatorName(%q) = %v, want %v", name, got, want)
		}
	}
}
