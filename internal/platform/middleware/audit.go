package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/platform/auth"
)

// AuditEntry records who looked at which dashboard data and what the server
// answered.
type AuditEntry struct {
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	Report     string    `json:"report"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	IPAddress  string    `json:"ip_address"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	StatusCode int       `json:"status_code"`
	Denied     bool      `json:"denied"`
}

// AuditRecorder persists audit entries. Tests provide a stub.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit emits a structured scope_access event for every /api/v1/ request
// after the handler has run. Denied requests (401/403) are logged at warn.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				Report:     extractReport(path),
				StatusCode: c.Response().Status,
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			entry.Denied = entry.StatusCode == http.StatusUnauthorized || entry.StatusCode == http.StatusForbidden

			// The auth middleware may have replaced the request, so read the
			// context after the handler.
			if u := auth.UserFromContext(c.Request().Context()); u != nil {
				entry.UserID = u.ID
				entry.Role = u.Role.String()
				entry.Department = u.Department
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			evt := logger.Info()
			if entry.Denied {
				evt = logger.Warn()
			}
			evt.
				Str("type", "scope_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("department", entry.Department).
				Str("report", entry.Report).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Bool("denied", entry.Denied).
				Msg("scope_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}

// extractReport returns the path below /api/v1/, e.g. "reports/utilization"
// for /api/v1/reports/utilization.
func extractReport(path string) string {
	rest := strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/")
	if rest == "" {
		return "unknown"
	}
	return rest
}
