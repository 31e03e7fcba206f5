package scope

import "time"

// Attribute values the nurse rules test against.
const (
	CategoryCommunicable = "communicable"
	ResourceBed          = "bed"
)

// Patient is a row of the patient registry. An empty Department means the
// patient is not assigned to any department.
type Patient struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Age        int       `json:"age"`
	Gender     string    `json:"gender"`
	Department string    `json:"department,omitempty"`
	Status     string    `json:"status"`
	AdmittedOn time.Time `json:"admitted_on"`
}

// Appointment is a scheduled or past visit.
type Appointment struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patient_id"`
	DoctorID   string    `json:"doctor_id"`
	Department string    `json:"department,omitempty"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Date       time.Time `json:"date"`
}

// FinancialItem is a billed line item feeding revenue views.
type FinancialItem struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id,omitempty"`
	Department  string    `json:"department,omitempty"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Paid        float64   `json:"paid"`
	Status      string    `json:"status"`
	Date        time.Time `json:"date"`
}

// ClinicalReport is a lab, imaging or ward report.
type ClinicalReport struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Department      string    `json:"department,omitempty"`
	Category        string    `json:"category"`
	Status          string    `json:"status"`
	IsTriageRelated bool      `json:"is_triage_related"`
	CreatedOn       time.Time `json:"created_on"`
}

// PatientStatistic is an age-bucketed patient count. AgeGroup is expected to
// look like "20-40".
type PatientStatistic struct {
	AgeGroup     string `json:"age_group"`
	Department   string `json:"department,omitempty"`
	Count        int    `json:"count"`
	Male         int    `json:"male"`
	Female       int    `json:"female"`
	Readmissions int    `json:"readmissions"`
}

// DoctorMetric is one doctor's performance row. Scope follows DoctorID,
// not Department.
type DoctorMetric struct {
	DoctorID              string  `json:"doctor_id"`
	DoctorName            string  `json:"doctor_name"`
	Department            string  `json:"department,omitempty"`
	PatientsSeen          int     `json:"patients_seen"`
	Appointments          int     `json:"appointments"`
	CompletedAppointments int     `json:"completed_appointments"`
	AvgConsultMinutes     float64 `json:"avg_consult_minutes"`
	SatisfactionScore     float64 `json:"satisfaction_score"`
}

// DiseaseTrend tracks case counts for one disease.
type DiseaseTrend struct {
	ID            string `json:"id"`
	Disease       string `json:"disease"`
	Category      string `json:"category"`
	Department    string `json:"department,omitempty"`
	Cases         int    `json:"cases"`
	PreviousCases int    `json:"previous_cases"`
	Trend         string `json:"trend"`
}

// ResourceUtilization is the occupancy of a pool of beds, rooms or devices.
type ResourceUtilization struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ResourceType    string `json:"resource_type"`
	Department      string `json:"department,omitempty"`
	Capacity        int    `json:"capacity"`
	InUse           int    `json:"in_use"`
	IsTriageRelated bool   `json:"is_triage_related"`
}
