// Package middleware provides HTTP middleware for the tracker API.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/welldanyogia/brandocs-backend/internal/logger"
)

// Realm is announced in the WWW-Authenticate challenge
const Realm = "Brandocs"

// BasicAuth gates routes behind a single username/password pair.
// Health probes are never gated. With an empty username the gate is open.
// Credentials are compared in constant time.
func BasicAuth(username, password string, sec *logger.SecurityLogger, log *slog.Logger) echo.MiddlewareFunc {
	if username == "" {
		if log != nil {
			log.Warn("BASIC_AUTH_USERNAME not set - dashboard is UNSECURED")
		}
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm:   Realm,
		Skipper: isHealthPath,
		Validator: func(user, pass string, c echo.Context) (bool, error) {
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
			if userOK && passOK {
				return true, nil
			}
			if sec != nil {
				sec.AuthFailure(c.RealIP(), c.Request().URL.Path, "invalid_credentials")
			}
			return false, nil
		},
	})
}

func isHealthPath(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/ready")
}
