package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenTypeRefresh = "refresh"

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims are carried by short-lived bearer tokens: {userId, exp}.
type AccessClaims struct {
	UserID string `json:"userId"`
	// Type is never set on access tokens; a non-empty value marks some other
	// token kind and is rejected by ParseAccess.
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims: {userId, payload, type, iat, exp}. Payload is 256 random
// bits so two refresh tokens never serialize identically.
type RefreshClaims struct {
	UserID  string `json:"userId"`
	Payload string `json:"payload"`
	Type    string `json:"type"`
	jwt.RegisteredClaims
}

// TokenSigner signs and verifies HS256 tokens with one process-wide secret.
// It is immutable after construction and safe for concurrent use.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the signer that validates expiry against now.
func (s *TokenSigner) WithClock(now func() time.Time) *TokenSigner {
	return &TokenSigner{secret: s.secret, now: now}
}

func (s *TokenSigner) SignAccess(userID string, expiresAt time.Time) (string, error) {
	claims := AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return s.sign(claims)
}

func (s *TokenSigner) SignRefresh(userID, payload string, issuedAt, expiresAt time.Time) (string, error) {
	claims := RefreshClaims{
		UserID:  userID,
		Payload: payload,
		Type:    TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return s.sign(claims)
}

func (s *TokenSigner) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenSigner) ParseAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != "" || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenSigner) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh || claims.UserID == "" || claims.Payload == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenSigner) parse(tokenString string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err == nil {
		return nil
	}
	// signature is checked before claims, so a forged token never reports expiry
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}

// HashToken returns the hex SHA-256 of a serialized token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RandomHex returns n random bytes from crypto/rand, hex encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
