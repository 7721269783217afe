package auth

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
)

// Verifier turns a bearer token into a verified identity. Token issuance
// lives upstream; the core only consumes (user, role) pairs.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (v *Verifier) Identity(tokenStr string) (domain.Identity, error) {
	if tokenStr == "" {
		return domain.Identity{}, fmt.Errorf("missing token: %w", domain.ErrUnauthenticated)
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid token: %w", domain.ErrUnauthenticated)
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return domain.Identity{}, fmt.Errorf("invalid token: %w", domain.ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid subject: %w", domain.ErrUnauthenticated)
	}

	role := domain.Role(claims.Role)
	switch role {
	case domain.RoleCustomer, domain.RoleSeller:
	default:
		return domain.Identity{}, fmt.Errorf("unknown role %q: %w", claims.Role, domain.ErrUnauthenticated)
	}

	return domain.Identity{UserID: userID, Role: role}, nil
}

// NewToken signs an identity token. Used by tooling and tests; production
// tokens come from the upstream identity provider.
func NewToken(secret string, userID uuid.UUID, role domain.Role, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
