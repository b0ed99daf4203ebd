package auth

import (
	"testing"
)

func TestHMACKeyRoundTrip(t *testing.T) {
	t.Setenv("API_MASTER_SECRET", "unit-test-secret")

	key := GenerateHMACKey("acme")
	companyID, err := VerifyHMACKey(key)
	if err != nil {
		t.Fatalf("VerifyHMACKey returned error: %v", err)
	}
	if companyID != "acme" {
		t.Errorf("Expected company acme, got %s", companyID)
	}
}

func TestVerifyHMACKey_TamperedSignature(t *testing.T) {
	t.Setenv("API_MASTER_SECRET", "unit-test-secret")

	key := GenerateHMACKey("acme")
	if _, err := VerifyHMACKey(key + "00"); err == nil {
		t.Error("Expected tampered key to be rejected")
	}
}

func TestVerifyHMACKey_WrongCompany(t *testing.T) {
	t.Setenv("API_MASTER_SECRET", "unit-test-secret")

	key := GenerateHMACKey("acme")
	parts := "rival." + key[len("acme."):]
	if _, err := VerifyHMACKey(parts); err == nil {
		t.Error("Expected signature for another company to be rejected")
	}
}

func TestVerifyHMACKey_BadFormat(t *testing.T) {
	if _, err := VerifyHMACKey("not-a-key"); err == nil {
		t.Error("Expected malformed key to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !CheckPasswordHash("hunter2", hash) {
		t.Error("Expected matching password to verify")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("Expected wrong password to fail")
	}
}
