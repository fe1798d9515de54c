package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeSession = "SESSION"

type Claims struct {
	SessionID string `json:"session_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies visitor session tokens.
type Tokens struct {
	key []byte
	ttl time.Duration
}

// NewTokens validates the signing secret loaded from configuration.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return &Tokens{key: []byte(secret), ttl: ttl}, nil
}

// NewSession starts an anonymous visitor session and returns its token.
func (t *Tokens) NewSession() (string, string, error) {
	sessionID := uuid.New().String()
	token, err := t.Generate(sessionID)
	return sessionID, token, err
}

// Generate creates a session token for sessionID.
func (t *Tokens) Generate(sessionID string) (string, error) {
	claims := &Claims{
		SessionID: sessionID,
		TokenType: tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.ttl)),
			Issuer:    "campaign-pricing",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

// Validate parses and verifies claims and signature integrity.
func (t *Tokens) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != tokenTypeSession || claims.SessionID == "" {
		return nil, errors.New("invalid token type: session token required")
	}
	return claims, nil
}
