package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const issuer = "convobot-backend"

var ErrInvalidToken = errors.New("invalid or expired session token")

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const SessionIDKey contextKey = "sessionID"

// SessionClaims identifies a chat session. Sessions are anonymous; the token
// only proves the holder owns the session.
type SessionClaims struct {
	SessionID uuid.UUID `json:"session_id"`
	jwt.RegisteredClaims
}

// NewSessionToken signs an HS256 token for sessionID.
func NewSessionToken(sessionID uuid.UUID, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   sessionID.String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		log.Error().Str("component", "auth").Err(err).Str("session_id", sessionID.String()).Msg("failed to sign session token")
		return "", err
	}
	return signed, nil
}

// ParseSessionToken validates tokenString and returns the session it names.
func ParseSessionToken(tokenString, secret string) (uuid.UUID, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.SessionID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims.SessionID, nil
}
