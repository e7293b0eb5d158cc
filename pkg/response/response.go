package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the "error" field of the envelope.
const (
	CodeInvalidCredentials  = "invalid_credentials"
	CodeInvalidRefreshToken = "invalid_refresh_token"
	CodeRegistrationFailed  = "registration_failed"
	CodeTokenExpired        = "token_expired"
	CodeUnauthorized        = "unauthorized"
	CodeValidation          = "validation_error"
	CodeNotFound            = "not_found"
	CodeRateLimited         = "rate_limited"
	CodeInternal            = "internal_error"
)

// ErrorBody is the error envelope returned by every endpoint.
type ErrorBody struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// AppError represents a structured application error with HTTP status and error code.
type AppError struct {
	HTTPStatus int
	Code       string
	Message    string
	Details    interface{}
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Body() ErrorBody {
	return ErrorBody{Error: e.Code, Message: e.Message, Details: e.Details}
}

func NewBadRequest(code, msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: code, Message: msg}
}

func NewUnauthorized(code, msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Code: code, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

func NewValidation(details interface{}) *AppError {
	return &AppError{
		HTTPStatus: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    "Request validation failed",
		Details:    details,
	}
}

func NewTooManyRequests() *AppError {
	return &AppError{HTTPStatus: http.StatusTooManyRequests, Code: CodeRateLimited, Message: "Too many requests, please try again later"}
}

func NewServerError() *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: CodeInternal, Message: "Internal server error"}
}

// Success sends a 200 OK response with data as the body.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 Created response with data as the body.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Page is the body of list endpoints.
type Page struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Error sends the error envelope. Anything that is not an *AppError becomes a
// generic internal_error so raw causes never reach clients.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewServerError()
	}
	c.JSON(appErr.HTTPStatus, appErr.Body())
}

// Abort is Error for middleware: it stops the handler chain.
func Abort(c *gin.Context, appErr *AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Body())
}

func BadRequest(c *gin.Context, err error) {
	Error(c, NewValidation(err.Error()))
}
