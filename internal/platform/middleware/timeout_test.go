package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRequestTimeout_CompletesWithinDeadline(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := func(c echo.Context) error {
		called = true
		if _, ok := c.Request().Context().Deadline(); !ok {
			t.Error("expected context to have a deadline")
		}
		return c.String(http.StatusOK, "ok")
	}

	err := RequestTimeout(5 * time.Second)(handler)(c)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
}

func TestRequestTimeout_ReturnsTimeoutOnExpiry(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/utilization", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return c.String(http.StatusOK, "ok")
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	err := RequestTimeout(50 * time.Millisecond)(handler)(c)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected status 504, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestRequestTimeout_PropagatesHandlerError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/line-items", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "Access Denied")
	}

	err := RequestTimeout(5 * time.Second)(handler)(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestRequestTimeout_WrappedDeadlineError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), rec)

	handler := func(c echo.Context) error {
		<-c.Request().Context().Done()
		return fmt.Errorf("load dataset: %w", c.Request().Context().Err())
	}

	if err := RequestTimeout(10 * time.Millisecond)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected status 504, got %d", rec.Code)
	}
}

// A handler that ignores the deadline finishes on the request goroutine, so
// its late write lands in its own response and never in a pooled context
// handed to the next request.
func TestRequestTimeout_SlowHandlerDoesNotLeakIntoNextRequest(t *testing.T) {
	e := echo.New()
	g := e.Group("", RequestTimeout(5*time.Millisecond))
	g.GET("/slow", func(c echo.Context) error {
		time.Sleep(30 * time.Millisecond)
		return c.String(http.StatusOK, "rows-for-user-a")
	})
	g.GET("/fast", func(c echo.Context) error {
		return c.String(http.StatusOK, "rows-for-user-b")
	})

	recA := httptest.NewRecorder()
	e.ServeHTTP(recA, httptest.NewRequest(http.MethodGet, "/slow", nil))

	recB := httptest.NewRecorder()
	e.ServeHTTP(recB, httptest.NewRequest(http.MethodGet, "/fast", nil))

	// Give any stray goroutine time to write.
	time.Sleep(50 * time.Millisecond)

	if got := recB.Body.String(); got != "rows-for-user-b" {
		t.Errorf("second response = %q, want only its own rows", got)
	}
	if got := recA.Body.String(); got != "rows-for-user-a" {
		t.Errorf("first response = %q", got)
	}
}
