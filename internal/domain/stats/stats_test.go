package stats

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/dashboard/internal/domain/scope"
	"github.com/ehr/dashboard/internal/platform/auth"
)

var (
	admin  = &auth.User{ID: "admin", Role: auth.RoleAdministrator}
	doctor = &auth.User{ID: "doc-1", Role: auth.RoleDoctor, Department: "Cardiology"}
	nurse  = &auth.User{ID: "nurse-1", Role: auth.RoleAuxiliaryNurse}
)

// tenPatients has 4 Cardiology patients and 6 Neurology patients.
func tenPatients() []scope.Patient {
	var ps []scope.Patient
	for i := 0; i < 10; i++ {
		p := scope.Patient{ID: fmt.Sprintf("p%d", i), Age: 50, Status: "outpatient", Department: "Neurology"}
		if i < 4 {
			p.Department = "Cardiology"
			p.Age = 20 + i*10 // 20, 30, 40, 50
		}
		if i == 0 || i == 5 {
			p.Status = "admitted"
		}
		if i == 1 {
			p.Status = "critical"
		}
		ps = append(ps, p)
	}
	return ps
}

func TestSummarizePatients_UsesFilteredRowsOnly(t *testing.T) {
	got := SummarizePatients(doctor, tenPatients())

	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 1, got.Admitted)
	assert.Equal(t, 1, got.Critical)
	assert.Equal(t, map[string]int{"admitted": 1, "critical": 1, "outpatient": 2}, got.ByStatus)
	assert.InDelta(t, 35.0, got.AverageAge, 0.001)

	all := SummarizePatients(admin, tenPatients())
	assert.Equal(t, 10, all.Total)
	assert.Equal(t, 2, all.Admitted)
}

func TestSummarizePatients_EmptyIsZero(t *testing.T) {
	got := SummarizePatients(nil, tenPatients())
	assert.Equal(t, 0, got.Total)
	assert.Zero(t, got.AverageAge)
	assert.Empty(t, got.ByStatus)
}

func TestSummarizeAppointments(t *testing.T) {
	appts := []scope.Appointment{
		{ID: "a1", Department: "Cardiology", Status: "completed"},
		{ID: "a2", Department: "Cardiology", Status: "cancelled"},
		{ID: "a3", Status: "completed"},
		{ID: "a4", Department: "Cardiology", Status: "scheduled"},
		{ID: "a5", Department: "Oncology", Status: "completed"},
	}

	got := SummarizeAppointments(doctor, appts)

	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 2, got.Completed)
	assert.Equal(t, 1, got.Cancelled)
	assert.InDelta(t, 50.0, got.CompletionRate, 0.001)

	assert.Zero(t, SummarizeAppointments(nil, appts).CompletionRate)
}

func TestSummarizeFinancials(t *testing.T) {
	items := []scope.FinancialItem{
		{ID: "f1", Department: "Cardiology", Category: "consultation", Amount: 200, Paid: 200, Status: "paid"},
		{ID: "f2", Department: "Cardiology", Category: "laboratory", Amount: 300, Paid: 0, Status: "overdue"},
		{ID: "f3", Department: "Oncology", Category: "surgery", Amount: 5000, Paid: 1000, Status: "pending"},
	}

	got := SummarizeFinancials(doctor, items)
	assert.Equal(t, 2, got.LineItems)
	assert.InDelta(t, 500.0, got.TotalBilled, 0.001)
	assert.InDelta(t, 200.0, got.TotalPaid, 0.001)
	assert.InDelta(t, 300.0, got.Outstanding, 0.001)
	assert.InDelta(t, 40.0, got.CollectionRate, 0.001)
	assert.Equal(t, 1, got.Overdue)
	assert.Equal(t, map[string]float64{"consultation": 200, "laboratory": 300}, got.ByCategory)

	hidden := SummarizeFinancials(nurse, items)
	assert.Equal(t, 0, hidden.LineItems)
	assert.Zero(t, hidden.TotalBilled)
	assert.Zero(t, hidden.CollectionRate)
}

func TestSummarizeClinicalReports(t *testing.T) {
	reports := []scope.ClinicalReport{
		{ID: "c1", Category: "laboratory", Status: "final", IsTriageRelated: true},
		{ID: "c2", Category: "imaging", Status: "final"},
		{ID: "c3", Category: "imaging", Status: "pending"},
		{ID: "c4", Category: "laboratory", Status: "preliminary", IsTriageRelated: true},
	}

	all := SummarizeClinicalReports(admin, reports)
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, 2, all.TriageRelated)
	assert.Equal(t, "laboratory", all.MostCommonCategory) // tie: first seen wins

	triage := SummarizeClinicalReports(nurse, reports)
	assert.Equal(t, 2, triage.Total)
	assert.Equal(t, map[string]int{"final": 1, "preliminary": 1}, triage.ByStatus)
}

func TestSummarizePatientStatistics_AgeBuckets(t *testing.T) {
	rows := []scope.PatientStatistic{
		{AgeGroup: "0-10", Count: 5},
		{AgeGroup: "20-40", Count: 10},
		{AgeGroup: "invalid-label", Count: 3},
	}

	got := SummarizePatientStatistics(admin, rows)

	assert.Equal(t, 18, got.TotalPatients)
	// (5*5 + 10*30 + 3*0) / 18: the unparsable label counts as age 0.
	assert.InDelta(t, 325.0/18.0, got.AverageAge, 0.0001)
	assert.Equal(t, []string{"invalid-label"}, got.UnparsedAgeGroups)
	assert.Equal(t, "20-40", got.LargestAgeGroup)
}

func TestSummarizePatientStatistics_ScopedAndRates(t *testing.T) {
	rows := []scope.PatientStatistic{
		{AgeGroup: "60-80", Department: "Cardiology", Count: 10, Male: 6, Female: 4, Readmissions: 2},
		{AgeGroup: "0-10", Department: "Pediatrics", Count: 30, Male: 15, Female: 15, Readmissions: 9},
	}

	got := SummarizePatientStatistics(doctor, rows)
	assert.Equal(t, 10, got.TotalPatients)
	assert.InDelta(t, 70.0, got.AverageAge, 0.001)
	assert.Equal(t, 6, got.Male)
	assert.InDelta(t, 20.0, got.ReadmissionRate, 0.001)
	assert.Empty(t, got.UnparsedAgeGroups)

	empty := SummarizePatientStatistics(&auth.User{Role: auth.RoleDoctor}, rows)
	assert.Zero(t, empty.AverageAge)
	assert.Zero(t, empty.ReadmissionRate)
}

func TestAgeGroupMidpoint(t *testing.T) {
	tests := []struct {
		label string
		want  float64
		ok    bool
	}{
		{"0-10", 5, true},
		{"20-40", 30, true},
		{"65-90", 77.5, true},
		{"65+", 0, false},
		{"ten-twenty", 0, false},
		{" 0-10", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := AgeGroupMidpoint(tt.label)
		assert.Equal(t, tt.ok, ok, tt.label)
		assert.InDelta(t, tt.want, got, 0.0001, tt.label)
	}
}

func TestSummarizeDoctorMetrics(t *testing.T) {
	rows := []scope.DoctorMetric{
		{DoctorID: "doc-1", Department: "Cardiology", PatientsSeen: 40, Appointments: 50, CompletedAppointments: 45, AvgConsultMinutes: 20, SatisfactionScore: 4.5},
		{DoctorID: "doc-2", Department: "Cardiology", PatientsSeen: 10, Appointments: 50, CompletedAppointments: 5, AvgConsultMinutes: 40, SatisfactionScore: 3.5},
	}

	own := SummarizeDoctorMetrics(doctor, rows)
	assert.Equal(t, 1, own.Doctors)
	assert.Equal(t, 40, own.TotalPatientsSeen)
	assert.InDelta(t, 4.5, own.AverageSatisfaction, 0.001)
	assert.InDelta(t, 90.0, own.CompletionRate, 0.001)

	all := SummarizeDoctorMetrics(nurse, rows)
	assert.Equal(t, 2, all.Doctors)
	assert.InDelta(t, 4.0, all.AverageSatisfaction, 0.001)
	assert.InDelta(t, 30.0, all.AverageConsultMinutes, 0.001)
	assert.InDelta(t, 50.0, all.CompletionRate, 0.001)
}

func TestSummarizeDiseaseTrends(t *testing.T) {
	rows := []scope.DiseaseTrend{
		{ID: "d1", Category: "chronic", Cases: 30, Trend: "stable"},
		{ID: "d2", Category: scope.CategoryCommunicable, Cases: 12, Trend: "increasing"},
		{ID: "d3", Category: scope.CategoryCommunicable, Cases: 8, Trend: "decreasing"},
		{ID: "d4", Category: "chronic", Cases: 5, Trend: "increasing"},
	}

	all := SummarizeDiseaseTrends(admin, rows)
	assert.Equal(t, 4, all.Diseases)
	assert.Equal(t, 55, all.TotalCases)
	assert.Equal(t, 2, all.Increasing)
	assert.Equal(t, 1, all.Decreasing)
	assert.Equal(t, 1, all.Stable)
	assert.Equal(t, "chronic", all.MostCommonCategory)

	communicable := SummarizeDiseaseTrends(nurse, rows)
	assert.Equal(t, 2, communicable.Diseases)
	assert.Equal(t, 20, communicable.TotalCases)
	assert.Equal(t, 0, communicable.Stable)
	assert.Equal(t, scope.CategoryCommunicable, communicable.MostCommonCategory)
}

func TestSummarizeUtilization(t *testing.T) {
	rows := []scope.ResourceUtilization{
		{ID: "r1", ResourceType: scope.ResourceBed, Capacity: 20, InUse: 15},
		{ID: "r2", ResourceType: "ventilator", Capacity: 10, InUse: 2},
		{ID: "r3", ResourceType: "triage-room", Capacity: 10, InUse: 3, IsTriageRelated: true},
	}

	all := SummarizeUtilization(admin, rows)
	assert.Equal(t, 40, all.TotalCapacity)
	assert.Equal(t, 20, all.TotalInUse)
	assert.InDelta(t, 50.0, all.UtilizationRate, 0.001)
	require.Contains(t, all.ByResourceType, scope.ResourceBed)
	assert.InDelta(t, 75.0, all.ByResourceType[scope.ResourceBed].Rate, 0.001)

	triage := SummarizeUtilization(nurse, rows)
	assert.Equal(t, 2, triage.Resources)
	assert.Equal(t, 30, triage.TotalCapacity)
	assert.NotContains(t, triage.ByResourceType, "ventilator")
}

func TestSummarizeUtilization_ZeroCapacity(t *testing.T) {
	rows := []scope.ResourceUtilization{{ID: "r1", ResourceType: scope.ResourceBed}}

	got := SummarizeUtilization(admin, rows)

	assert.Zero(t, got.UtilizationRate)
	assert.Zero(t, got.ByResourceType[scope.ResourceBed].Rate)
}

func TestSummaries_AdministratorNeverSeesLess(t *testing.T) {
	users := []*auth.User{nil, doctor, nurse, {ID: "x", Role: auth.RoleUnknown}}
	for _, u := range users {
		assert.GreaterOrEqual(t, SummarizePatients(admin, tenPatients()).Total, SummarizePatients(u, tenPatients()).Total)
	}
}
