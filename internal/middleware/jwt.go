// Package middleware holds the echo middleware of the admin API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-billboard/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ContextSubject = "subject"
	ContextRole    = "role"
)

// JWTAuth validates a Bearer access token and stores its subject and role
// in the echo context under ContextSubject and ContextRole.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ContextSubject, claims.Subject)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}

// subject returns the authenticated subject or "anon".
func subject(c echo.Context) string {
	if s, ok := c.Get(ContextSubject).(string); ok && s != "" {
		return s
	}
	return "anon"
}
