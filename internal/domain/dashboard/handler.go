package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/domain/scope"
	"github.com/ehr/dashboard/internal/platform/auth"
	"github.com/ehr/dashboard/internal/platform/export"
	"github.com/ehr/dashboard/pkg/pagination"
)

// Handler provides dashboard HTTP endpoints.
type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, logger: svc.logger}
}

// RegisterRoutes registers the dashboard routes on api. The group is
// expected to run behind authentication.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	checker := h.svc.Checker()
	gate := func(perm string) echo.MiddlewareFunc {
		return auth.RequirePermission(checker, perm)
	}

	api.GET("/me", h.Me)
	api.GET("/access", h.Access)
	api.GET("/overview", h.Overview, gate(auth.PermDashboardView))

	api.GET("/patients", h.ListPatients, gate(auth.PermPatientsView))
	api.GET("/appointments", h.ListAppointments, gate(auth.PermAppointmentsView))
	api.GET("/billing/line-items", h.ListFinancialItems, gate(auth.PermBillingView))

	reports := api.Group("/reports")
	reports.GET("/clinical", h.ListClinicalReports, gate(auth.PermClinicalReportView))
	reports.GET("/patient-statistics", h.ListPatientStatistics, gate(auth.PermStatisticsView))
	reports.GET("/doctor-metrics", h.ListDoctorMetrics, gate(auth.PermDoctorMetricsView))
	reports.GET("/disease-trends", h.ListDiseaseTrends, gate(auth.PermDiseaseTrendsView))
	reports.GET("/utilization", h.ListUtilization, gate(auth.PermUtilizationView))

	api.GET("/export/:report", h.Export, gate(auth.PermReportsExport))
}

// ListResponse is a page of scoped rows with the summary and banner for the
// whole scoped collection. Total counts scoped rows, not raw rows.
type ListResponse struct {
	pagination.Response
	Summary interface{}    `json:"summary"`
	Scope   scope.Metadata `json:"scope"`
}

func list[T any, S any](c echo.Context, res *Scoped[T, S]) error {
	pg := pagination.FromContext(c)
	page := pagination.Page(res.Items, pg)
	return c.JSON(http.StatusOK, ListResponse{
		Response: *pagination.NewResponse(page, len(res.Items), pg.Limit, pg.Offset),
		Summary:  res.Summary,
		Scope:    res.Scope,
	})
}

func currentUser(c echo.Context) *auth.User {
	return auth.UserFromContext(c.Request().Context())
}

// loadFailed logs err and maps it to a 500. Deadline errors pass through
// unchanged so the timeout middleware can answer 504.
func (h *Handler) loadFailed(c echo.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	rid, _ := c.Get("request_id").(string)
	h.logger.Error().Err(err).
		Str("request_id", rid).
		Str("path", c.Request().URL.Path).
		Msg("failed to load dashboard data")
	return echo.NewHTTPError(http.StatusInternalServerError, "failed to load dashboard data")
}

// MeResponse describes the caller and what the policy grants them.
type MeResponse struct {
	User        *auth.User `json:"user"`
	DisplayName string     `json:"display_name"`
	Permissions []string   `json:"permissions"`
}

func (h *Handler) Me(c echo.Context) error {
	u := currentUser(c)
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, MeResponse{
		User:        u,
		DisplayName: u.DisplayName(),
		Permissions: h.svc.Checker().Permissions(u),
	})
}

// AccessResponse answers a single permission check.
type AccessResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

func (h *Handler) Access(c echo.Context) error {
	perm := c.QueryParam("permission")
	if perm == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "permission is required")
	}
	return c.JSON(http.StatusOK, AccessResponse{
		Permission: perm,
		Allowed:    h.svc.Checker().HasPermission(currentUser(c), perm),
	})
}

func (h *Handler) Overview(c echo.Context) error {
	o, err := h.svc.Overview(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListPatients(c echo.Context) error {
	res, err := h.svc.Patients(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return list(c, res)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	res, err := h.svc.Appointments(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return list(c, res)
}

func (h *Handler) ListFinancialItems(c echo.Context) error {
	res, err := h.svc.FinancialItems(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return list(c, res)
}

func (h *Handler) ListClinicalReports(c echo.Context) error {
	res, err := h.svc.ClinicalReports(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return list(c, res)
}

func (h *Handler) ListPatientStatistics(c echo.Context) error {
	res, err := h.svc.PatientStatistics(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return list(c, res)
}

func (h *Handler) ListDoctorMetrics(c echo.Context) error {
	res, err := h.svc.DoctorMetrics(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return list(c, res)
}

func (h *Handler) ListDiseaseTrends(c echo.Context) error {
	res, err := h.svc.DiseaseTrends(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return list(c, res)
}

func (h *Handler) ListUtilization(c echo.Context) error {
	res, err := h.svc.Utilization(c.Request().Context(), currentUser(c))
	if err != nil {
		return h.loadFailed(c, err)
	}
	return list(c, res)
}

// Export streams one report as a workbook. The caller needs the export
// permission (checked by the route) and the report's own view permission.
func (h *Handler) Export(c echo.Context) error {
	report := scope.ReportType(c.Param("report"))
	perm, ok := ReportPermission(report)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown report %q", report))
	}
	u := currentUser(c)
	if !h.svc.Checker().HasPermission(u, perm) {
		return echo.NewHTTPError(http.StatusForbidden, auth.AccessDeniedMessage)
	}

	sheets, err := h.svc.ExportSheets(c.Request().Context(), u, report)
	if err != nil {
		if errors.Is(err, ErrUnknownReport) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return h.loadFailed(c, err)
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, sheets...); err != nil {
		rid, _ := c.Get("request_id").(string)
		h.logger.Error().Err(err).
			Str("request_id", rid).
			Str("report", string(report)).
			Msg("failed to build export")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build export")
	}

	name := fmt.Sprintf("%s-%s.xlsx", report, time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}
