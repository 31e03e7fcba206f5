package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/domain/dataset"
	"github.com/ehr/dashboard/internal/domain/scope"
	"github.com/ehr/dashboard/internal/domain/stats"
	"github.com/ehr/dashboard/internal/platform/auth"
)

// ErrUnknownReport is returned for report names outside the known families.
var ErrUnknownReport = errors.New("unknown report")

// reportPermissions is the screen permission that gates each family.
var reportPermissions = map[scope.ReportType]string{
	scope.ReportPatients:          auth.PermPatientsView,
	scope.ReportAppointments:      auth.PermAppointmentsView,
	scope.ReportFinancial:         auth.PermBillingView,
	scope.ReportClinical:          auth.PermClinicalReportView,
	scope.ReportPatientStatistics: auth.PermStatisticsView,
	scope.ReportDoctorMetrics:     auth.PermDoctorMetricsView,
	scope.ReportDiseaseTrends:     auth.PermDiseaseTrendsView,
	scope.ReportUtilization:       auth.PermUtilizationView,
}

// ReportPermission returns the permission that gates report.
func ReportPermission(report scope.ReportType) (string, bool) {
	p, ok := reportPermissions[report]
	return p, ok
}

// Scoped is one family as a user sees it: the visible rows, the summary
// computed over exactly those rows, and the banner explaining the scope.
type Scoped[T any, S any] struct {
	Items   []T
	Summary S
	Scope   scope.Metadata
}

func build[T any, S any](
	u *auth.User,
	report scope.ReportType,
	raw []T,
	filter func(*auth.User, []T) []T,
	summarize func(*auth.User, []T) S,
) *Scoped[T, S] {
	visible := filter(u, raw)
	return &Scoped[T, S]{
		Items:   visible,
		Summary: summarize(u, raw),
		Scope:   scope.DescribeScope(u, report, len(raw), len(visible)),
	}
}

// Service serves scoped dashboard data. It loads the raw dataset per call
// and never keeps filtered results.
type Service struct {
	source  dataset.Source
	checker *auth.Checker
	logger  zerolog.Logger
}

func NewService(source dataset.Source, checker *auth.Checker, logger zerolog.Logger) *Service {
	return &Service{source: source, checker: checker, logger: logger}
}

// Checker returns the access checker the service gates with.
func (s *Service) Checker() *auth.Checker {
	return s.checker
}

func (s *Service) load(ctx context.Context) (*dataset.Dataset, error) {
	d, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return d, nil
}

func (s *Service) Patients(ctx context.Context, u *auth.User) (*Scoped[scope.Patient, stats.PatientSummary], error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return build(u, scope.ReportPatients, d.Patients, scope.FilterPatients, stats.SummarizePatients), nil
}

func (s *Service) Appointments(ctx context.Context, u *auth.User) (*Scoped[scope.Appointment, stats.AppointmentSummary], error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return build(u, scope.ReportAppointments, d.Appointments, scope.FilterAppointments, stats.SummarizeAppointments), nil
}

func (s *Service) FinancialItems(ctx context.Context, u *auth.User) (*Scoped[scope.FinancialItem, stats.FinancialSummary], error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return build(u, scope.ReportFinancial, d.FinancialItems, scope.FilterFinancialItems, stats.SummarizeFinancials), nil
}

func (s *Service) ClinicalReports(ctx context.Context, u *auth.User) (*Scoped[scope.ClinicalReport, stats.ClinicalReportSummary], error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return build(u, scope.ReportClinical, d.ClinicalReports, scope.FilterClinicalReports, stats.SummarizeClinicalReports), nil
}

// PatientStatistics also logs age-group labels that could not be parsed,
// since they silently pull the average age toward zero.
func (s *Service) PatientStatistics(ctx context.Context, u *auth.User) (*Scoped[scope.PatientStatistic, stats.PatientStatisticsSummary], error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	res := build(u, scope.ReportPatientStatistics, d.PatientStatistics, scope.FilterPatientStatistics, stats.SummarizePatientStatistics)
	if len(res.Summary.UnparsedAgeGroups) > 0 {
		s.logger.Warn().
			Strs("age_groups", res.Summary.UnparsedAgeGroups).
			Msg("age groups without a <low>-<high> range were counted as age 0")
	}
	return res, nil
}

func (s *Service) DoctorMetrics(ctx context.Context, u *auth.User) (*Scoped[scope.DoctorMetric, stats.DoctorMetricsSummary], error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return build(u, scope.ReportDoctorMetrics, d.DoctorMetrics, scope.FilterDoctorMetrics, stats.SummarizeDoctorMetrics), nil
}

func (s *Service) DiseaseTrends(ctx context.Context, u *auth.User) (*Scoped[scope.DiseaseTrend, stats.DiseaseTrendSummary], error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return build(u, scope.ReportDiseaseTrends, d.DiseaseTrends, scope.FilterDiseaseTrends, stats.SummarizeDiseaseTrends), nil
}

func (s *Service) Utilization(ctx context.Context, u *auth.User) (*Scoped[scope.ResourceUtilization, stats.UtilizationSummary], error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return build(u, scope.ReportUtilization, d.ResourceUtilization, scope.FilterResourceUtilization, stats.SummarizeUtilization), nil
}

// Card is a summary plus its banner, as shown on the overview screen.
type Card[S any] struct {
	Summary S              `json:"summary"`
	Scope   scope.Metadata `json:"scope"`
}

// Overview holds one card per family the user is allowed to open. Families
// whose screen permission is missing are left out.
type Overview struct {
	Patients          *Card[stats.PatientSummary]           `json:"patients,omitempty"`
	Appointments      *Card[stats.AppointmentSummary]       `json:"appointments,omitempty"`
	Financial         *Card[stats.FinancialSummary]         `json:"financial,omitempty"`
	Clinical          *Card[stats.ClinicalReportSummary]    `json:"clinical,omitempty"`
	PatientStatistics *Card[stats.PatientStatisticsSummary] `json:"patient_statistics,omitempty"`
	DoctorMetrics     *Card[stats.DoctorMetricsSummary]     `json:"doctor_metrics,omitempty"`
	DiseaseTrends     *Card[stats.DiseaseTrendSummary]      `json:"disease_trends,omitempty"`
	Utilization       *Card[stats.UtilizationSummary]       `json:"utilization,omitempty"`
}

func card[T any, S any](s *Scoped[T, S]) *Card[S] {
	return &Card[S]{Summary: s.Summary, Scope: s.Scope}
}

// Overview builds every card from a single dataset load.
func (s *Service) Overview(ctx context.Context, u *auth.User) (*Overview, error) {
	d, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	allowed := func(r scope.ReportType) bool {
		return s.checker.HasPermission(u, reportPermissions[r])
	}

	var o Overview
	if allowed(scope.ReportPatients) {
		o.Patients = card(build(u, scope.ReportPatients, d.Patients, scope.FilterPatients, stats.SummarizePatients))
	}
	if allowed(scope.ReportAppointments) {
		o.Appointments = card(build(u, scope.ReportAppointments, d.Appointments, scope.FilterAppointments, stats.SummarizeAppointments))
	}
	if allowed(scope.ReportFinancial) {
		o.Financial = card(build(u, scope.ReportFinancial, d.FinancialItems, scope.FilterFinancialItems, stats.SummarizeFinancials))
	}
	if allowed(scope.ReportClinical) {
		o.Clinical = card(build(u, scope.ReportClinical, d.ClinicalReports, scope.FilterClinicalReports, stats.SummarizeClinicalReports))
	}
	if allowed(scope.ReportPatientStatistics) {
		o.PatientStatistics = card(build(u, scope.ReportPatientStatistics, d.PatientStatistics, scope.FilterPatientStatistics, stats.SummarizePatientStatistics))
	}
	if allowed(scope.ReportDoctorMetrics) {
		o.DoctorMetrics = card(build(u, scope.ReportDoctorMetrics, d.DoctorMetrics, scope.FilterDoctorMetrics, stats.SummarizeDoctorMetrics))
	}
	if allowed(scope.ReportDiseaseTrends) {
		o.DiseaseTrends = card(build(u, scope.ReportDiseaseTrends, d.DiseaseTrends, scope.FilterDiseaseTrends, stats.SummarizeDiseaseTrends))
	}
	if allowed(scope.ReportUtilization) {
		o.Utilization = card(build(u, scope.ReportUtilization, d.ResourceUtilization, scope.FilterResourceUtilization, stats.SummarizeUtilization))
	}
	return &o, nil
}
