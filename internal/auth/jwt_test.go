package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
)

const testSecret = "test-secret-0123456789abcdef"

func TestVerifier_Identity(t *testing.T) {
	verifier := NewVerifier(testSecret)
	userID := uuid.New()

	t.Run("round trip", func(t *testing.T) {
		token, err := NewToken(testSecret, userID, domain.RoleCustomer, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		identity, err := verifier.Identity(token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if identity.UserID != userID || identity.Role != domain.RoleCustomer {
			t.Errorf("identity mismatch: %+v", identity)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if _, err := verifier.Identity(""); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewToken("another-secret-0123456789abcdef", userID, domain.RoleSeller, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := verifier.Identity(token); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := NewToken(testSecret, userID, domain.RoleCustomer, -time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := verifier.Identity(token); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := NewToken(testSecret, userID, domain.Role("ADMIN"), time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := verifier.Identity(token); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})
}
