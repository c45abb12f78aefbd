package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serveWithHeaders(target string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(SecureHeaders())
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "success") }
	e.GET("/", ok)
	e.GET("/api/emails", ok)
	e.GET("/check-latest", ok)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSecureHeaders_AllHeadersPresent(t *testing.T) {
	rec := serveWithHeaders("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "geolocation=(), microphone=(), camera=()", rec.Header().Get("Permissions-Policy"))
}

func TestSecureHeaders_ContentSecurityPolicy(t *testing.T) {
	csp := serveWithHeaders("/").Header().Get("Content-Security-Policy")

	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "connect-src 'self' ws: wss:")
	assert.Contains(t, csp, "frame-ancestors 'none'")
}

func TestSecureHeaders_NoStoreOnAPI(t *testing.T) {
	assert.Equal(t, "no-store", serveWithHeaders("/api/emails").Header().Get("Cache-Control"))
	assert.Equal(t, "no-store", serveWithHeaders("/check-latest").Header().Get("Cache-Control"))
	assert.Empty(t, serveWithHeaders("/").Header().Get("Cache-Control"))
}

func TestSecureHeaders_HSTSNotOnHTTP(t *testing.T) {
	rec := serveWithHeaders("http://localhost/")

	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecureHeaders_HSTSBehindTLSProxy(t *testing.T) {
	e := echo.New()
	e.Use(SecureHeaders())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXForwardedProto, "https")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}
