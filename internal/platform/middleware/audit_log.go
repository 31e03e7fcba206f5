package middleware

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/ehr/dashboard/pkg/pagination"
)

// AuditLog keeps the most recent audit entries in memory. It is an
// AuditRecorder and is safe for concurrent use.
type AuditLog struct {
	mu      sync.RWMutex
	entries []AuditEntry
	next    int
	full    bool
}

// NewAuditLog returns a log holding at most capacity entries.
func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &AuditLog{entries: make([]AuditEntry, capacity)}
}

func (l *AuditLog) RecordAccess(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

// Recent returns the stored entries, newest first.
func (l *AuditLog) Recent() []AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.next
	if l.full {
		n = len(l.entries)
	}
	out := make([]AuditEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}

// AuditLogHandler serves the recent entries as a paginated list.
// ?denied=true keeps only 401 and 403 answers.
func AuditLogHandler(l *AuditLog) echo.HandlerFunc {
	return func(c echo.Context) error {
		entries := l.Recent()
		if c.QueryParam("denied") == "true" {
			kept := entries[:0]
			for _, e := range entries {
				if e.Denied {
					kept = append(kept, e)
				}
			}
			entries = kept
		}
		pg := pagination.FromContext(c)
		return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(entries, pg), len(entries), pg.Limit, pg.Offset))
	}
}
