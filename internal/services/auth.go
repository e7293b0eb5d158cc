package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/puttlab/backend/internal/models"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/internal/utils"
	"github.com/puttlab/backend/pkg/logger"
)

// Errors returned by AuthService. Every failure is one of these; the
// underlying cause is logged and never returned to callers.
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRegistrationFailed  = errors.New("registration failed")
	ErrInternal            = errors.New("internal error")
	ErrNotFound            = errors.New("not found")
)

const logoutMessage = "Successfully logged out"

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthResult is the body of a successful register or login.
type AuthResult struct {
	TokenPair
	User models.PublicUser `json:"user"`
}

type LogoutResult struct {
	Message string `json:"message"`
}

type AuthService struct {
	users     store.UserStore
	tokens    store.RefreshTokenStore
	passwords PasswordVerifier
	signer    *utils.TokenSigner
	issuer    *TokenIssuer
	now       func() time.Time
}

func NewAuthService(users store.UserStore, tokens store.RefreshTokenStore, passwords PasswordVerifier, signer *utils.TokenSigner) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		signer:    signer,
		issuer:    NewTokenIssuer(signer, tokens),
		now:       utcNow,
	}
}

// WithClock returns a copy of the service that uses now for issuance,
// token verification and revocation.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	c := *s
	c.now = now
	c.signer = s.signer.WithClock(now)
	c.issuer = s.issuer.WithClock(now)
	return &c
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	_, err := s.users.FindByEmail(ctx, req.Email)
	if err == nil {
		// pay the same bcrypt cost as a fresh registration
		s.passwords.Verify(req.Password, s.passwords.DummyHash())
		return nil, ErrRegistrationFailed
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, s.internal("register: lookup user", err)
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, s.internal("register: hash password", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration for the same email
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrRegistrationFailed
		}
		return nil, s.internal("register: create user", err)
	}

	pair, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, s.internal("register: issue tokens", err)
	}

	logger.Info().Str("user_id", user.ID).Msg("[Auth] user registered")
	return &AuthResult{TokenPair: *pair, User: user.Public()}, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, s.internal("login: lookup user", err)
	}

	// Always pay for one bcrypt comparison so unknown emails and wrong
	// passwords are indistinguishable by latency.
	hash := s.passwords.DummyHash()
	if user != nil {
		hash = user.PasswordHash
	}
	matched := s.passwords.Verify(req.Password, hash)
	if user == nil || !matched {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID).Msg("[Auth] failed to update last login")
	}

	pair, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, s.internal("login: issue tokens", err)
	}

	return &AuthResult{TokenPair: *pair, User: user.Public()}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued in the same transaction. Of several concurrent refreshes
// of one token exactly one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if _, err := s.signer.ParseRefresh(refreshToken); err != nil {
		logger.Debug().Err(err).Msg("[Auth] refresh token rejected")
		return nil, ErrInvalidRefreshToken
	}

	hash := utils.HashToken(refreshToken)

	var pair *TokenPair
	err := s.tokens.Transaction(ctx, func(tx store.RefreshTokenStore) error {
		consumed, err := tx.RevokeIfActive(ctx, hash, s.now())
		if err != nil {
			return err
		}

		issued, successor, err := s.issuer.WithStore(tx).issue(ctx, consumed.UserID)
		if err != nil {
			return err
		}
		if err := tx.MarkReplaced(ctx, consumed.ID, successor.ID); err != nil {
			return err
		}

		pair = issued
		return nil
	})
	if errors.Is(err, store.ErrTokenNotActive) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, s.internal("refresh: rotate", err)
	}

	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) (*LogoutResult, error) {
	_, err := s.tokens.RevokeIfActive(ctx, utils.HashToken(refreshToken), s.now())
	if errors.Is(err, store.ErrTokenNotActive) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, s.internal("logout: revoke", err)
	}
	return &LogoutResult{Message: logoutMessage}, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.internal("current user", err)
	}
	public := user.Public()
	return &public, nil
}

func (s *AuthService) internal(op string, err error) error {
	logger.Error().Err(err).Str("op", op).Msg("[Auth] operation failed")
	return fmt.Errorf("%w: %s", ErrInternal, op)
}
