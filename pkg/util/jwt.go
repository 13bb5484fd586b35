package util

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity carried by an access token.
type Claims struct {
	UserID int
	Email  string
}

const tokenTTL = 24 * time.Hour

// GenerateJWT signs an HS256 token with "id" and "email" claims.
func GenerateJWT(userID int, email, secret string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":    userID,
		"email": email,
		"exp":   now.Add(tokenTTL).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates tokenStr and extracts the identity claims.
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenMalformed
	}

	id, ok := claims["id"].(float64)
	if !ok {
		return nil, errors.Join(jwt.ErrTokenMalformed, errors.New("missing id claim"))
	}
	email, _ := claims["email"].(string)

	return &Claims{UserID: int(id), Email: email}, nil
}

// ExtractToken returns the bearer token from the Authorization header, or "".
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
