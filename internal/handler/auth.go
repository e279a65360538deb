package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/config"
	"github.com/iliyamo/movie-billboard/internal/utils"
)

// RoleAdmin is the role carried by tokens that may edit the catalog.
const RoleAdmin = "ADMIN"

// AuthHandler issues access tokens to the catalog administrator, whose
// credentials come from configuration.
type AuthHandler struct {
	Cfg config.Config
	Log *zap.Logger
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(cfg config.Config, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Log: logger}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return invalid(c, err)
	}

	// same answer for unknown email and wrong password
	if req.Email != strings.ToLower(h.Cfg.AdminEmail) || !utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password) {
		h.Log.Warn("login rejected", zap.String("email", req.Email), zap.String("remote_ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.Email, RoleAdmin, h.Cfg.AccessTTL())
	if err != nil {
		h.Log.Error("sign access token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	return c.JSON(http.StatusOK, authResp{
		User:   userPart{Email: req.Email, Role: RoleAdmin},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
