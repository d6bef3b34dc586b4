package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Service issues and validates access/refresh token pairs. It is constructed
// once at startup and handed to the HTTP layer; no package-level state.
type Service struct {
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// New builds a token service. The refresh secret is derived from the main
// secret when not provided separately.
func New(secret string) (*Service, error) {
	if len(secret) < 32 {
		return nil, errors.New("token secret must be at least 32 characters")
	}
	return &Service{
		secret:        []byte(secret),
		refreshSecret: []byte(secret + "-refresh"),
		accessTTL:     15 * time.Minute,
		refreshTTL:    7 * 24 * time.Hour,
	}, nil
}

type Claims struct {
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type,omitempty"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// GenerateToken creates a short-lived access token.
func (s *Service) GenerateToken(userID int, username string) (string, error) {
	return s.sign(userID, username, "access", s.accessTTL, s.secret)
}

// GenerateRefreshToken creates a long-lived refresh token signed with the
// separate refresh secret.
func (s *Service) GenerateRefreshToken(userID int, username string) (string, error) {
	return s.sign(userID, username, "refresh", s.refreshTTL, s.refreshSecret)
}

func (s *Service) sign(userID int, username, tokenType string, ttl time.Duration, key []byte) (string, error) {
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateToken checks an access token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, "access", s.secret)
}

// ValidateRefreshToken checks a refresh token.
func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, "refresh", s.refreshSecret)
}

func (s *Service) validate(tokenString, tokenType string, key []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.TokenType != tokenType {
			return nil, errors.New("invalid token type")
		}
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
