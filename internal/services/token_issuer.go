package services

import (
	"context"
	"fmt"
	"time"

	"github.com/puttlab/backend/internal/models"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/internal/utils"
)

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour

	refreshPayloadBytes = 32
	tokenTypeBearer     = "Bearer"
)

// TokenPair is returned to clients by register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// TokenIssuer mints an access/refresh pair and records the refresh token's
// hash. It never touches the user row.
type TokenIssuer struct {
	signer *utils.TokenSigner
	tokens store.RefreshTokenStore
	now    func() time.Time
}

func NewTokenIssuer(signer *utils.TokenSigner, tokens store.RefreshTokenStore) *TokenIssuer {
	return &TokenIssuer{signer: signer, tokens: tokens, now: utcNow}
}

// WithStore returns an issuer that records tokens through tokens, typically
// a store bound to an open transaction.
func (i *TokenIssuer) WithStore(tokens store.RefreshTokenStore) *TokenIssuer {
	c := *i
	c.tokens = tokens
	return &c
}

func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	c := *i
	c.now = now
	c.signer = i.signer.WithClock(now)
	return &c
}

func (i *TokenIssuer) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	pair, _, err := i.issue(ctx, userID)
	return pair, err
}

func (i *TokenIssuer) issue(ctx context.Context, userID string) (*TokenPair, *models.RefreshToken, error) {
	now := i.now()

	access, err := i.signer.SignAccess(userID, now.Add(AccessTokenTTL))
	if err != nil {
		return nil, nil, err
	}

	payload, err := utils.RandomHex(refreshPayloadBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh payload: %w", err)
	}

	expiresAt := now.Add(RefreshTokenTTL)
	refresh, err := i.signer.SignRefresh(userID, payload, now, expiresAt)
	if err != nil {
		return nil, nil, err
	}

	record := &models.RefreshToken{
		UserID:    userID,
		TokenHash: utils.HashToken(refresh),
		ExpiresAt: expiresAt,
	}
	if err := i.tokens.Create(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(AccessTokenTTL / time.Second),
		TokenType:    tokenTypeBearer,
	}, record, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
