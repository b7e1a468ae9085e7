package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role values carried in the JWT "role" claim.
const (
	RoleParent = "parent"
	RoleKid    = "kid"
)

// Claims represents the JWT claims we expect
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates and parses a JWT token string
func ParseToken(tokenStr string) (*Claims, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Verify the signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// GetBearerToken extracts the Bearer token from the Authorization header
func GetBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}

	return ""
}

// RoleFromRequest resolves the shopping role for a request. Requests
// without a valid parent token browse as kids.
func RoleFromRequest(r *http.Request) string {
	tokenStr := GetBearerToken(r)
	if tokenStr == "" {
		return RoleKid
	}

	claims, err := ParseToken(tokenStr)
	if err != nil || claims.Role != RoleParent {
		return RoleKid
	}

	return RoleParent
}

// IsParent reports whether the request carries a valid parent token.
func IsParent(r *http.Request) bool {
	return RoleFromRequest(r) == RoleParent
}
