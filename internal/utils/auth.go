package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// MinOperatorNameLength is the shortest display name accepted at login
const MinOperatorNameLength = 3

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidOperatorName reports whether a trimmed display name is long enough
func ValidOperatorName(name string) bool {
	return len([]rune(strings.TrimSpace(name))) >= MinOperatorNameLength
}

// GenerateSessionToken issues a token carrying the operator display name
func GenerateSessionToken(operator, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"name": strings.TrimSpace(operator),
		"type": "session",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// OperatorFromClaims extracts the display name from session claims
func OperatorFromClaims(claims jwt.MapClaims) (string, bool) {
	name, ok := claims["name"].(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
