package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims the platform understands.
type Claims struct {
	jwt.RegisteredClaims
	Role   string `json:"role"`
	UserID string `json:"user_id"`
}

// ErrInvalidToken indicates a missing or unparseable bearer token.
var ErrInvalidToken = errors.New("auth: invalid token")

// ParseToken verifies the signature and returns the claims.
func ParseToken(token string, secret []byte) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
