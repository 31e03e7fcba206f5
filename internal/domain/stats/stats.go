// Package stats builds dashboard summaries. Every builder filters its input
// through the scope package first and computes only over the result, so a
// number shown to a user always matches the rows that user can see.
package stats

import (
	"regexp"
	"strconv"

	"github.com/ehr/dashboard/internal/domain/scope"
	"github.com/ehr/dashboard/internal/platform/auth"
)

// rate returns part/whole as a percentage, or 0 when whole is 0.
func rate(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// tally keeps insertion order so ties resolve to the first key seen.
type tally struct {
	order  []string
	counts map[string]float64
}

func newTally() *tally {
	return &tally{counts: make(map[string]float64)}
}

func (t *tally) add(key string, n float64) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key] += n
}

func (t *tally) top() string {
	best, bestN := "", 0.0
	for i, k := range t.order {
		if n := t.counts[k]; i == 0 || n > bestN {
			best, bestN = k, n
		}
	}
	return best
}

func (t *tally) ints() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = int(v)
	}
	return out
}

// PatientSummary summarizes the patient registry.
type PatientSummary struct {
	Total      int            `json:"total"`
	Admitted   int            `json:"admitted"`
	Critical   int            `json:"critical"`
	ByStatus   map[string]int `json:"by_status"`
	AverageAge float64        `json:"average_age"`
}

// SummarizePatients counts the patients u may see.
func SummarizePatients(u *auth.User, items []scope.Patient) PatientSummary {
	visible := scope.FilterPatients(u, items)
	byStatus := newTally()
	s := PatientSummary{Total: len(visible)}
	ageSum := 0
	for _, p := range visible {
		byStatus.add(p.Status, 1)
		ageSum += p.Age
		switch p.Status {
		case "admitted":
			s.Admitted++
		case "critical":
			s.Critical++
		}
	}
	s.ByStatus = byStatus.ints()
	if s.Total > 0 {
		s.AverageAge = float64(ageSum) / float64(s.Total)
	}
	return s
}

// AppointmentSummary summarizes visits.
type AppointmentSummary struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Cancelled      int            `json:"cancelled"`
	ByStatus       map[string]int `json:"by_status"`
	CompletionRate float64        `json:"completion_rate"`
}

// SummarizeAppointments counts the appointments u may see.
func SummarizeAppointments(u *auth.User, items []scope.Appointment) AppointmentSummary {
	visible := scope.FilterAppointments(u, items)
	byStatus := newTally()
	s := AppointmentSummary{Total: len(visible)}
	for _, a := range visible {
		byStatus.add(a.Status, 1)
		switch a.Status {
		case "completed":
			s.Completed++
		case "cancelled":
			s.Cancelled++
		}
	}
	s.ByStatus = byStatus.ints()
	s.CompletionRate = rate(float64(s.Completed), float64(s.Total))
	return s
}

// FinancialSummary summarizes revenue.
type FinancialSummary struct {
	LineItems      int                `json:"line_items"`
	TotalBilled    float64            `json:"total_billed"`
	TotalPaid      float64            `json:"total_paid"`
	Outstanding    float64            `json:"outstanding"`
	CollectionRate float64            `json:"collection_rate"`
	Overdue        int                `json:"overdue"`
	ByCategory     map[string]float64 `json:"by_category"`
}

// SummarizeFinancials totals the line items u may see.
func SummarizeFinancials(u *auth.User, items []scope.FinancialItem) FinancialSummary {
	visible := scope.FilterFinancialItems(u, items)
	s := FinancialSummary{LineItems: len(visible), ByCategory: make(map[string]float64)}
	for _, f := range visible {
		s.TotalBilled += f.Amount
		s.TotalPaid += f.Paid
		s.ByCategory[f.Category] += f.Amount
		if f.Status == "overdue" {
			s.Overdue++
		}
	}
	s.Outstanding = s.TotalBilled - s.TotalPaid
	s.CollectionRate = rate(s.TotalPaid, s.TotalBilled)
	return s
}

// ClinicalReportSummary summarizes clinical reports.
type ClinicalReportSummary struct {
	Total              int            `json:"total"`
	TriageRelated      int            `json:"triage_related"`
	ByStatus           map[string]int `json:"by_status"`
	MostCommonCategory string         `json:"most_common_category"`
}

// SummarizeClinicalReports counts the reports u may see.
func SummarizeClinicalReports(u *auth.User, items []scope.ClinicalReport) ClinicalReportSummary {
	visible := scope.FilterClinicalReports(u, items)
	byStatus, byCategory := newTally(), newTally()
	s := ClinicalReportSummary{Total: len(visible)}
	for _, r := range visible {
		byStatus.add(r.Status, 1)
		byCategory.add(r.Category, 1)
		if r.IsTriageRelated {
			s.TriageRelated++
		}
	}
	s.ByStatus = byStatus.ints()
	s.MostCommonCategory = byCategory.top()
	return s
}

// PatientStatisticsSummary summarizes age-bucketed patient counts.
type PatientStatisticsSummary struct {
	TotalPatients   int     `json:"total_patients"`
	AverageAge      float64 `json:"average_age"`
	Male            int     `json:"male"`
	Female          int     `json:"female"`
	Readmissions    int     `json:"readmissions"`
	ReadmissionRate float64 `json:"readmission_rate"`
	LargestAgeGroup string  `json:"largest_age_group"`
	// UnparsedAgeGroups lists labels that did not match "<low>-<high>" and
	// therefore contributed an age of 0 to AverageAge.
	UnparsedAgeGroups []string `json:"unparsed_age_groups,omitempty"`
}

var ageGroupPattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

// AgeGroupMidpoint returns the midpoint of a "<low>-<high>" label. Labels
// that do not match yield 0 and ok=false.
func AgeGroupMidpoint(label string) (mid float64, ok bool) {
	m := ageGroupPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	low, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	high, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return float64(low+high) / 2, true
}

// SummarizePatientStatistics aggregates the rows u may see. The average age
// weights each bucket's midpoint by its count.
func SummarizePatientStatistics(u *auth.User, items []scope.PatientStatistic) PatientStatisticsSummary {
	visible := scope.FilterPatientStatistics(u, items)
	groups := newTally()
	var s PatientStatisticsSummary
	weighted := 0.0
	for _, row := range visible {
		s.TotalPatients += row.Count
		s.Male += row.Male
		s.Female += row.Female
		s.Readmissions += row.Readmissions
		groups.add(row.AgeGroup, float64(row.Count))

		mid, ok := AgeGroupMidpoint(row.AgeGroup)
		if !ok {
			s.UnparsedAgeGroups = append(s.UnparsedAgeGroups, row.AgeGroup)
		}
		weighted += mid * float64(row.Count)
	}
	if s.TotalPatients > 0 {
		s.AverageAge = weighted / float64(s.TotalPatients)
	}
	s.ReadmissionRate = rate(float64(s.Readmissions), float64(s.TotalPatients))
	s.LargestAgeGroup = groups.top()
	return s
}

// DoctorMetricsSummary summarizes doctor performance.
type DoctorMetricsSummary struct {
	Doctors               int     `json:"doctors"`
	TotalPatientsSeen     int     `json:"total_patients_seen"`
	AverageSatisfaction   float64 `json:"average_satisfaction"`
	AverageConsultMinutes float64 `json:"average_consult_minutes"`
	CompletionRate        float64 `json:"completion_rate"`
}

// SummarizeDoctorMetrics aggregates the performance rows u may see.
func SummarizeDoctorMetrics(u *auth.User, items []scope.DoctorMetric) DoctorMetricsSummary {
	visible := scope.FilterDoctorMetrics(u, items)
	s := DoctorMetricsSummary{Doctors: len(visible)}
	var satisfaction, consult float64
	var appointments, completed int
	for _, m := range visible {
		s.TotalPatientsSeen += m.PatientsSeen
		satisfaction += m.SatisfactionScore
		consult += m.AvgConsultMinutes
		appointments += m.Appointments
		completed += m.CompletedAppointments
	}
	if s.Doctors > 0 {
		s.AverageSatisfaction = satisfaction / float64(s.Doctors)
		s.AverageConsultMinutes = consult / float64(s.Doctors)
	}
	s.CompletionRate = rate(float64(completed), float64(appointments))
	return s
}

// DiseaseTrendSummary summarizes case trends.
type DiseaseTrendSummary struct {
	Diseases           int    `json:"diseases"`
	TotalCases         int    `json:"total_cases"`
	Increasing         int    `json:"increasing"`
	Decreasing         int    `json:"decreasing"`
	Stable             int    `json:"stable"`
	MostCommonCategory string `json:"most_common_category"`
}

// SummarizeDiseaseTrends aggregates the trends u may see. The most common
// category is the one with the most cases.
func SummarizeDiseaseTrends(u *auth.User, items []scope.DiseaseTrend) DiseaseTrendSummary {
	visible := scope.FilterDiseaseTrends(u, items)
	categories := newTally()
	s := DiseaseTrendSummary{Diseases: len(visible)}
	for _, d := range visible {
		s.TotalCases += d.Cases
		categories.add(d.Category, float64(d.Cases))
		switch d.Trend {
		case "increasing":
			s.Increasing++
		case "decreasing":
			s.Decreasing++
		case "stable":
			s.Stable++
		}
	}
	s.MostCommonCategory = categories.top()
	return s
}

// ResourceUsage is capacity and occupancy for one resource type.
type ResourceUsage struct {
	Capacity int     `json:"capacity"`
	InUse    int     `json:"in_use"`
	Rate     float64 `json:"rate"`
}

// UtilizationSummary summarizes resource occupancy.
type UtilizationSummary struct {
	Resources       int                      `json:"resources"`
	TotalCapacity   int                      `json:"total_capacity"`
	TotalInUse      int                      `json:"total_in_use"`
	UtilizationRate float64                  `json:"utilization_rate"`
	ByResourceType  map[string]ResourceUsage `json:"by_resource_type"`
}

// SummarizeUtilization aggregates the records u may see. A zero total
// capacity gives a utilization rate of 0.
func SummarizeUtilization(u *auth.User, items []scope.ResourceUtilization) UtilizationSummary {
	visible := scope.FilterResourceUtilization(u, items)
	s := UtilizationSummary{Resources: len(visible), ByResourceType: make(map[string]ResourceUsage)}
	for _, r := range visible {
		s.TotalCapacity += r.Capacity
		s.TotalInUse += r.InUse
		usage := s.ByResourceType[r.ResourceType]
		usage.Capacity += r.Capacity
		usage.InUse += r.InUse
		s.ByResourceType[r.ResourceType] = usage
	}
	for k, usage := range s.ByResourceType {
		usage.Rate = rate(float64(usage.InUse), float64(usage.Capacity))
		s.ByResourceType[k] = usage
	}
	s.UtilizationRate = rate(float64(s.TotalInUse), float64(s.TotalCapacity))
	return s
}
