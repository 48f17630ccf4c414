package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

// issueToken signs the claims simple-jwt-login puts in its tokens.
func (s *Server) issueToken(u User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"id":       u.ID,
		"email":    u.Email,
		"username": u.Login,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parseToken verifies tokenStr and returns the user ID it was issued for.
func (s *Server) parseToken(tokenStr string) (int64, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token claims")
	}
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return 0, fmt.Errorf("token has no user id")
	}
	return int64(id), nil
}

// tokenLifetime is simple-jwt-login's default expiry.
const tokenLifetime = time.Hour
