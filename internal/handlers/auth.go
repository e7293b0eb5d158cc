package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/puttlab/backend/internal/middleware"
	"github.com/puttlab/backend/internal/services"
	"github.com/puttlab/backend/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates an account and signs it in
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	res, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, authError(err))
		return
	}

	response.Created(c, res)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, authError(err))
		return
	}

	response.Success(c, res)
}

// Refresh exchanges a refresh token for a new pair
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, authError(err))
		return
	}

	response.Success(c, pair)
}

// Logout revokes a refresh token
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	res, err := h.authService.Logout(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, authError(err))
		return
	}

	response.Success(c, res)
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.CurrentUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, authError(err))
		return
	}

	response.Success(c, user)
}

func authError(err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.NewUnauthorized(response.CodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, services.ErrInvalidRefreshToken):
		return response.NewUnauthorized(response.CodeInvalidRefreshToken, "Invalid or expired refresh token")
	case errors.Is(err, services.ErrRegistrationFailed):
		return response.NewBadRequest(response.CodeRegistrationFailed, "Registration failed")
	case errors.Is(err, services.ErrNotFound):
		return response.NewNotFound("User not found")
	default:
		return response.NewServerError()
	}
}
