// ABOUTME: Signed state tokens carrying the pending-authorization ID
// ABOUTME: Uses HS256 JWTs so state survives the redirect round-trip without server lookup

package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// stateSigner mints and verifies the opaque state-carrying value handed
// to clients between the authorize and complete steps.
type stateSigner struct {
	secret []byte
	ttl    time.Duration
}

func newStateSigner(secret []byte, ttl time.Duration) *stateSigner {
	return &stateSigner{secret: secret, ttl: ttl}
}

// Sign creates a state token for the given authorization request ID.
func (s *stateSigner) Sign(requestID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": requestID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a state token and extracts the request ID.
func (s *stateSigner) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parsing state token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid state token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid state token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("state token missing sub claim")
	}

	return sub, nil
}
