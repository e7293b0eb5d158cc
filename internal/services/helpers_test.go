package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/internal/models"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/internal/utils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "services-test-secret"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	db     *gorm.DB
	clock  *testClock
	signer *utils.TokenSigner
	users  *store.GormUserStore
	tokens *store.GormRefreshTokenStore
	locks  *store.GormSchedulerLockStore
	auth   *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	verifier, err := NewBcryptVerifier(bcrypt.MinCost)
	require.NoError(t, err)

	clock := newTestClock()
	signer := utils.NewTokenSigner(testSecret)
	env := &testEnv{
		db:     db,
		clock:  clock,
		signer: signer.WithClock(clock.Now),
		users:  store.NewUserStore(db),
		tokens: store.NewRefreshTokenStore(db),
		locks:  store.NewSchedulerLockStore(db),
	}
	env.auth = NewAuthService(env.users, env.tokens, verifier, env.signer).WithClock(clock.Now)
	return env
}

func (e *testEnv) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), &RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return res
}

type userStoreMock struct{ mock.Mock }

func (m *userStoreMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *userStoreMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *userStoreMock) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if user.ID == "" {
		user.ID = "generated-id"
	}
	return args.Error(0)
}

func (m *userStoreMock) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type refreshTokenStoreMock struct{ mock.Mock }

func (m *refreshTokenStoreMock) Create(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(ctx, token)
	if token.ID == "" {
		token.ID = "token-id"
	}
	return args.Error(0)
}

func (m *refreshTokenStoreMock) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	args := m.Called(ctx, hash)
	rt, _ := args.Get(0).(*models.RefreshToken)
	return rt, args.Error(1)
}

func (m *refreshTokenStoreMock) RevokeIfActive(ctx context.Context, hash string, now time.Time) (*models.RefreshToken, error) {
	args := m.Called(ctx, hash, now)
	rt, _ := args.Get(0).(*models.RefreshToken)
	return rt, args.Error(1)
}

func (m *refreshTokenStoreMock) MarkReplaced(ctx context.Context, id, successorID string) error {
	args := m.Called(ctx, id, successorID)
	return args.Error(0)
}

func (m *refreshTokenStoreMock) DeleteExpired(ctx context.Context, now time.Time) (store.DeleteResult, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(store.DeleteResult), args.Error(1)
}

func (m *refreshTokenStoreMock) Transaction(ctx context.Context, fn func(tx store.RefreshTokenStore) error) error {
	return fn(m)
}

// passwordMock counts verifications so tests can assert both login failure
// paths pay for exactly one comparison.
type passwordMock struct{ mock.Mock }

func (m *passwordMock) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *passwordMock) Verify(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

func (m *passwordMock) DummyHash() string {
	return m.Called().String(0)
}
