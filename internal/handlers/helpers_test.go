package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/internal/middleware"
	"github.com/puttlab/backend/internal/models"
	"github.com/puttlab/backend/internal/services"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "handlers-test-secret"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	signer *utils.TokenSigner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, logger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	verifier, err := services.NewBcryptVerifier(bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	signer := utils.NewTokenSigner(testSecret)

	authHandler := NewAuthHandler(services.NewAuthService(store.NewUserStore(db), store.NewRefreshTokenStore(db), verifier, signer))
	practiceHandler := NewPracticeHandler(services.NewPracticeService(store.NewPracticeStore(db)))
	healthHandler := NewHealthHandler(db, func() string { return "cron" })

	r := gin.New()
	r.GET("/health", healthHandler.CheckHealth)
	auth := r.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", middleware.AuthRequired(signer), authHandler.GetCurrentUser)

	api := r.Group("/api", middleware.AuthRequired(signer))
	api.GET("/templates", practiceHandler.ListTemplates)
	api.GET("/templates/:id", practiceHandler.GetTemplate)
	api.POST("/templates", practiceHandler.CreateTemplate)
	api.PUT("/templates/:id", practiceHandler.UpdateTemplate)
	api.DELETE("/templates/:id", practiceHandler.DeleteTemplate)
	api.GET("/rounds", practiceHandler.ListRounds)
	api.GET("/rounds/:id", practiceHandler.GetRound)
	api.POST("/rounds", practiceHandler.CreateRound)
	api.DELETE("/rounds/:id", practiceHandler.DeleteRound)

	return &testServer{router: r, db: db, signer: signer}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email, password string) map[string]interface{} {
	t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":      email,
		"password":   password,
		"first_name": "Test",
		"last_name":  "User",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", w.Code, w.Body.String())
	}
	return decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body %q: %v", w.Body.String(), err)
	}
	return body
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	if got, _ := decode(t, w)["error"].(string); got != code {
		t.Errorf("error = %q, want %q", got, code)
	}
}
