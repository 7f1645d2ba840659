package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and verifies the HS256 tokens used for sessions and
// for the short-lived OTP-verified registration step.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GenerateSessionToken issues the 24h session token carrying the user id
// and role.
func (t *TokenService) GenerateSessionToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// GenerateOTPToken issues a 10-minute token binding a verified identifier,
// consumed once by registration or login completion.
func (t *TokenService) GenerateOTPToken(email, phone string) (string, error) {
	claims := jwt.MapClaims{
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	if phone != "" {
		claims["phone_number"] = phone
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ParseToken verifies the signature and expiry and returns the claims.
func (t *TokenService) ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
