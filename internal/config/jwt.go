package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT signs the control tokens that authorize cancelling a maze session.
type JWT struct {
	secret        []byte
	signingMethod jwt.SigningMethod
	tokenLifetime time.Duration
	ephemeral     bool
}

type ControlClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func loadSecret() (secret []byte, ephemeral bool, err error) {
	secretStr, ok := os.LookupEnv("SESSION_SECRET")
	if ok && secretStr != "" {
		return []byte(secretStr), false, nil
	}
	secretPath, ok := os.LookupEnv("SESSION_SECRET_FILE")
	if ok {
		secret, err := os.ReadFile(secretPath)
		if err != nil {
			return nil, false, fmt.Errorf("unable to read session secret: %w", err)
		}
		return secret, false, nil
	}
	secret = make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, false, fmt.Errorf("unable to generate session secret: %w", err)
	}
	return secret, true, nil
}

// NewJWT reads SESSION_SECRET or SESSION_SECRET_FILE. Without either a random
// secret is generated, so tokens do not survive a restart.
func NewJWT(tokenLifetime time.Duration) (*JWT, error) {
	secret, ephemeral, err := loadSecret()
	if err != nil {
		return nil, err
	}
	return NewJWTWithSecret(secret, tokenLifetime, ephemeral), nil
}

func NewJWTWithSecret(secret []byte, tokenLifetime time.Duration, ephemeral bool) *JWT {
	return &JWT{
		secret:        secret,
		signingMethod: jwt.SigningMethodHS256,
		tokenLifetime: tokenLifetime,
		ephemeral:     ephemeral,
	}
}

// Ephemeral reports whether the secret was generated at startup.
func (j *JWT) Ephemeral() bool {
	return j.ephemeral
}

func (j *JWT) NewControlClaims(sessionID string) *ControlClaims {
	now := time.Now()
	return &ControlClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenLifetime)),
		},
	}
}

func (j *JWT) Sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(j.signingMethod, claims).SignedString(j.secret)
}

func (j *JWT) ParseControlClaims(tokenString string) (*ControlClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&ControlClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return j.secret, nil
		},
		jwt.WithValidMethods([]string{j.signingMethod.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*ControlClaims)
	if !ok || claims.SessionID == "" {
		return nil, errors.New("malformed claims")
	}
	return claims, nil
}
