package service

import (
	"errors"
	"fmt"
	"time"

	"donation-gateway/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTTokenService implements ports.TokenService using HS256 JWT. A token
// grants read access to a single recipient's ledger.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// MinJWTSecretLength is the shortest HS256 signing key accepted, in bytes.
const MinJWTSecretLength = 32

// ErrWeakJWTSecret is returned when the signing key is empty or too short.
var ErrWeakJWTSecret = fmt.Errorf("jwt secret must be at least %d bytes", MinJWTSecretLength)

// NewJWTTokenService creates a new JWT token service. It refuses a signing
// key shorter than MinJWTSecretLength, since anyone could forge tokens
// signed with an empty one.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) (*JWTTokenService, error) {
	if len(secret) < MinJWTSecretLength {
		return nil, ErrWeakJWTSecret
	}
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}, nil
}

// Generate issues a token scoped to recipientID.
func (s *JWTTokenService) Generate(recipientID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.RegisteredClaims{
		Subject:   recipientID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a token and returns the recipient it is scoped to.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("missing subject claim")
	}
	recipientID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient ID in token: %w", err)
	}

	return &ports.TokenClaims{RecipientID: recipientID}, nil
}
