package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("unexpected hash error: %v", err)
	}
	if hash == "password123" {
		t.Fatalf("expected hash to differ from the password")
	}
	if err := hasher.Compare(hash, "password123"); err != nil {
		t.Fatalf("expected matching password, got %v", err)
	}
	if err := hasher.Compare(hash, "password124"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestBcryptHasherFallsBackToDefaultCost(t *testing.T) {
	hasher := NewBcryptHasher(99)
	if hasher.cost != DefaultBcryptCost {
		t.Fatalf("expected default cost, got %d", hasher.cost)
	}
}
