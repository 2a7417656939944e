// Package auth validates bearer tokens issued by the platform's identity
// service. This service never issues tokens itself; login, registration,
// and billing live outside the analytics backend.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// UserClaims are the identity fields the platform embeds in access tokens.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Tier   string `json:"subscription_tier"`
}

// Claims wraps UserClaims with the registered JWT claims.
type Claims struct {
	UserClaims
	jwt.RegisteredClaims
}

// Validator verifies access tokens against the platform's shared secret.
type Validator struct {
	secret []byte
}

// NewValidator creates a token validator
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// ValidateAccessToken validates an access token and returns the claims
func (v *Validator) ValidateAccessToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &claims.UserClaims, nil
}
