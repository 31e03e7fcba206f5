package scope

import "sort"

// ReportType names an entity family as the UI refers to it.
type ReportType string

const (
	ReportPatients          ReportType = "patients"
	ReportAppointments      ReportType = "appointments"
	ReportFinancial         ReportType = "financial"
	ReportClinical          ReportType = "clinical"
	ReportPatientStatistics ReportType = "patient-statistics"
	ReportDoctorMetrics     ReportType = "doctor-metrics"
	ReportDiseaseTrends     ReportType = "disease-trends"
	ReportUtilization       ReportType = "utilization"
)

// nurseAccess is how much of a family an auxiliary nurse sees.
type nurseAccess int

const (
	nurseNone nurseAccess = iota
	nurseAll
	nursePartial
)

// policy is the role-level description of one family. The typed rules below
// embed it, and DescribeScope reads it, so the banner text and the predicate
// come from the same entry.
type policy struct {
	report ReportType
	// selfScoped families match doctors by identity instead of department.
	selfScoped bool
	nurse      nurseAccess
	// nurseScope describes what the nurse predicate keeps.
	nurseScope string
}

// genericPolicy is used by DescribeScope for report types without a family.
var genericPolicy = policy{nurse: nurseAll, nurseScope: "triage duties access"}

var policies = map[ReportType]policy{
	ReportPatients:          {report: ReportPatients, nurse: nurseAll, nurseScope: "triage duties access"},
	ReportAppointments:      {report: ReportAppointments, nurse: nurseAll, nurseScope: "triage duties access"},
	ReportFinancial:         {report: ReportFinancial, nurse: nurseNone, nurseScope: "no financial data"},
	ReportClinical:          {report: ReportClinical, nurse: nursePartial, nurseScope: "triage-related reports only"},
	ReportPatientStatistics: {report: ReportPatientStatistics, nurse: nurseAll, nurseScope: "triage duties access"},
	ReportDoctorMetrics:     {report: ReportDoctorMetrics, selfScoped: true, nurse: nurseAll, nurseScope: "triage duties access"},
	ReportDiseaseTrends:     {report: ReportDiseaseTrends, nurse: nursePartial, nurseScope: "communicable diseases only"},
	ReportUtilization:       {report: ReportUtilization, nurse: nursePartial, nurseScope: "bed utilization and triage facilities"},
}

// ReportTypes returns every known report type, sorted.
func ReportTypes() []ReportType {
	out := make([]ReportType, 0, len(policies))
	for r := range policies {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsKnown reports whether r names an entity family.
func (r ReportType) IsKnown() bool {
	_, ok := policies[r]
	return ok
}

// rule binds a policy to the accessors of a concrete entity type.
type rule[T any] struct {
	policy
	department func(T) string
	owner      func(T) string
	nurseKeeps func(T) bool
}

func ruleFor[T any](r ReportType, department func(T) string) rule[T] {
	return rule[T]{policy: policies[r], department: department}
}

var (
	patientRule = ruleFor(ReportPatients, func(p Patient) string { return p.Department })

	appointmentRule = ruleFor(ReportAppointments, func(a Appointment) string { return a.Department })

	financialRule = ruleFor(ReportFinancial, func(f FinancialItem) string { return f.Department })

	clinicalRule = func() rule[ClinicalReport] {
		r := ruleFor(ReportClinical, func(c ClinicalReport) string { return c.Department })
		r.nurseKeeps = func(c ClinicalReport) bool { return c.IsTriageRelated }
		return r
	}()

	patientStatisticRule = ruleFor(ReportPatientStatistics, func(s PatientStatistic) string { return s.Department })

	doctorMetricRule = func() rule[DoctorMetric] {
		r := ruleFor(ReportDoctorMetrics, func(m DoctorMetric) string { return m.Department })
		r.owner = func(m DoctorMetric) string { return m.DoctorID }
		return r
	}()

	diseaseTrendRule = func() rule[DiseaseTrend] {
		r := ruleFor(ReportDiseaseTrends, func(d DiseaseTrend) string { return d.Department })
		r.nurseKeeps = func(d DiseaseTrend) bool { return d.Category == CategoryCommunicable }
		return r
	}()

	utilizationRule = func() rule[ResourceUtilization] {
		r := ruleFor(ReportUtilization, func(u ResourceUtilization) string { return u.Department })
		r.nurseKeeps = func(u ResourceUtilization) bool {
			return u.ResourceType == ResourceBed || u.IsTriageRelated
		}
		return r
	}()
)
