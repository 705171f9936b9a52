package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"goldtrade/internal/delivery/http/dto"
	"goldtrade/internal/domain"
	"goldtrade/internal/middleware"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userRepo     domain.UserRepository
	auth         *middleware.JWTAuth
	secureCookie bool
	log          *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo domain.UserRepository, auth *middleware.JWTAuth, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		auth:         auth,
		secureCookie: secureCookie,
		log:          log,
	}
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	req, ok, err := bindAndValidate[dto.LoginRequest](c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.log.Error("failed to load user for login", zap.Error(err))
		}
		return UnauthorizedResponse(c, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return UnauthorizedResponse(c, "Invalid credentials")
	}

	token, err := h.auth.Generate(user.ID, user.Role)
	if err != nil {
		return HandleError(c, h.log, "Failed to generate token", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400,
	})

	return SuccessResponse(c, dto.LoginResponse{
		Token: token,
		User:  dto.NewUserOutput(user),
	})
}

// Logout clears the session cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return SuccessMessageResponse(c, "Logged out", nil)
}

// Register creates a member account
// POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	req, ok, err := bindAndValidate[dto.RegisterRequest](c)
	if !ok {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return HandleError(c, h.log, "Failed to hash password", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyUsed) {
			return ErrorResponse(c, http.StatusConflict, "Email already registered", nil)
		}
		return HandleError(c, h.log, "Failed to create user", err)
	}

	return CreatedResponse(c, dto.NewUserOutput(user))
}
