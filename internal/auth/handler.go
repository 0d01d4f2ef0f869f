package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/auth-forge/internal/api"
	"github.com/yourusername/auth-forge/internal/users"
)

// authService はハンドラーが利用する認証操作のインターフェースです。
type authService interface {
	Register(ctx context.Context, userID, password string) (users.PublicView, error)
	Login(ctx context.Context, userID, password string) (users.PublicView, error)
	Logout(ctx context.Context, userID string) (users.PublicView, error)
}

// Manager は認証エンドポイントのハンドラーをまとめた構造体です。
type Manager struct {
	service authService
	logger  *log.Logger
}

// NewManager は認証マネージャーを作成します。
func NewManager(service authService, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		service: service,
		logger:  logger,
	}
}

type credentialsRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type logoutRequest struct {
	UserID string `json:"userId"`
}

// Register は POST /api/user/register のハンドラーです。
func (m *Manager) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.NewError(http.StatusBadRequest, "Please fill out all the fields"))
		return
	}

	view, err := m.service.Register(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			c.JSON(http.StatusBadRequest, api.NewError(http.StatusBadRequest, "Please fill out all the fields"))
		case errors.Is(err, ErrUserExists):
			c.JSON(http.StatusConflict, api.NewError(http.StatusConflict, "User already exists. Please login"))
		default:
			m.logger.Printf("register error: %v", err)
			c.JSON(http.StatusInternalServerError,
				api.NewErrorDetail(http.StatusInternalServerError, "Server error during registration", err))
		}
		return
	}

	c.JSON(http.StatusCreated, api.NewSuccess(http.StatusCreated, view, "User registered successfully"))
}

// Login は POST /api/user/login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.NewError(http.StatusBadRequest, "Please fill out all the fields"))
		return
	}

	view, err := m.service.Login(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			c.JSON(http.StatusBadRequest, api.NewError(http.StatusBadRequest, "Please fill out all the fields"))
		case errors.Is(err, ErrNotFound):
			// 「存在しない」(404) と「パスワード不一致」(403) は区別して返します。
			// ユーザー存在の推測を許す代わりに、クライアント互換を優先しています。
			c.JSON(http.StatusNotFound, api.NewError(http.StatusNotFound, "User not found"))
		case errors.Is(err, ErrAlreadyLoggedIn):
			c.JSON(http.StatusBadRequest,
				api.NewError(http.StatusBadRequest, "ID already logged in from another device"))
		case errors.Is(err, ErrUnauthorized):
			c.JSON(http.StatusForbidden, api.NewError(http.StatusForbidden, "Unauthorized"))
		default:
			m.logger.Printf("login error: %v", err)
			c.JSON(http.StatusInternalServerError,
				api.NewErrorDetail(http.StatusInternalServerError, "Internal Server Error", err))
		}
		return
	}

	c.JSON(http.StatusOK, api.NewSuccess(http.StatusOK, view, "Logged in successfully"))
}

// Logout は POST /api/user/logout のハンドラーです。
func (m *Manager) Logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.NewError(http.StatusBadRequest, "Please provide a userId"))
		return
	}

	view, err := m.service.Logout(c.Request.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			c.JSON(http.StatusBadRequest, api.NewError(http.StatusBadRequest, "Please provide a userId"))
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, api.NewError(http.StatusNotFound, "User not found"))
		default:
			m.logger.Printf("logout error: %v", err)
			c.JSON(http.StatusInternalServerError,
				api.NewErrorDetail(http.StatusInternalServerError, "Internal Server Error", err))
		}
		return
	}

	c.JSON(http.StatusOK, api.NewSuccess(http.StatusOK, view, "Logged out successfully"))
}
