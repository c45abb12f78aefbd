// Package logger sets up structured logging and records security events
// without ever writing credentials.
package logger

import (
	"log/slog"
	"os"
	"time"
)

// SecurityLogger logs security-related events.
// It ensures sensitive data is never logged.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a new SecurityLogger with JSON output.
func NewSecurityLogger() *SecurityLogger {
	return NewSecurityLoggerWithHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// NewSecurityLoggerWithHandler creates a SecurityLogger with a custom handler.
func NewSecurityLoggerWithHandler(handler slog.Handler) *SecurityLogger {
	return &SecurityLogger{logger: slog.New(handler)}
}

// NewSecurityLoggerFrom wraps an existing logger.
func NewSecurityLoggerFrom(logger *slog.Logger) *SecurityLogger {
	if logger == nil {
		return NewSecurityLogger()
	}
	return &SecurityLogger{logger: logger}
}

func (s *SecurityLogger) event(msg, eventType string, attrs ...any) {
	attrs = append([]any{
		slog.String("event_type", eventType),
		slog.Time("timestamp", time.Now().UTC()),
	}, attrs...)
	s.logger.Warn(msg, attrs...)
}

// AuthFailure logs a failed dashboard login.
// Never logs the supplied credentials.
func (s *SecurityLogger) AuthFailure(ip, path, reason string) {
	s.event("authentication_failure", "auth_failure",
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("reason", reason),
	)
}

// RateLimitExceeded logs when a client exceeds rate limits.
func (s *SecurityLogger) RateLimitExceeded(ip, path string) {
	s.event("rate_limit_exceeded", "rate_limit",
		slog.String("ip", ip),
		slog.String("path", path),
	)
}

// PathTraversalAttempt logs a stored PDF path that escaped the storage root.
func (s *SecurityLogger) PathTraversalAttempt(ip, path, attemptedPath string) {
	s.event("path_traversal_attempt", "path_traversal",
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("attempted_path", attemptedPath),
	)
}

// InvalidOrigin logs a rejected WebSocket connection due to invalid origin.
func (s *SecurityLogger) InvalidOrigin(ip, origin string) {
	s.event("invalid_origin", "invalid_origin",
		slog.String("ip", ip),
		slog.String("origin", origin),
	)
}

// MailboxLoginFailure logs a rejected login to the monitored mailbox.
func (s *SecurityLogger) MailboxLoginFailure(host, username, reason string) {
	s.event("mailbox_login_failure", "mailbox_login",
		slog.String("host", host),
		slog.String("username", username),
		slog.String("reason", reason),
	)
}

// SecurityEvent logs a generic security event, dropping sensitive keys.
func (s *SecurityLogger) SecurityEvent(eventType, ip string, details map[string]string) {
	attrs := []any{slog.String("ip", ip)}
	for k, v := range details {
		if isSensitiveKey(k) {
			continue
		}
		attrs = append(attrs, slog.String(k, v))
	}
	s.event("security_event", eventType, attrs...)
}

// GetLogger returns the underlying slog.Logger for use with middleware.
func (s *SecurityLogger) GetLogger() *slog.Logger {
	return s.logger
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"api_key":       true,
	"apikey":        true,
	"token":         true,
	"secret":        true,
	"authorization": true,
	"auth":          true,
	"credential":    true,
	"credentials":   true,
	"session":       true,
	"cookie":        true,
}

// isSensitiveKey checks if a key might contain sensitive data.
func isSensitiveKey(key string) bool {
	return sensitiveKeys[key]
}
