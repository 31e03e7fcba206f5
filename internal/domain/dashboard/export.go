package dashboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ehr/dashboard/internal/domain/scope"
	"github.com/ehr/dashboard/internal/platform/auth"
	"github.com/ehr/dashboard/internal/platform/export"
)

const dateLayout = "2006-01-02"

// ExportSheets returns the worksheets for one report: the rows u may see,
// followed by a "Scope" sheet carrying the banner for those rows.
func (s *Service) ExportSheets(ctx context.Context, u *auth.User, report scope.ReportType) ([]export.Sheet, error) {
	var (
		data export.Sheet
		md   scope.Metadata
	)

	switch report {
	case scope.ReportPatients:
		res, err := s.Patients(ctx, u)
		if err != nil {
			return nil, err
		}
		data, md = patientSheet(res.Items), res.Scope
	case scope.ReportAppointments:
		res, err := s.Appointments(ctx, u)
		if err != nil {
			return nil, err
		}
		data, md = appointmentSheet(res.Items), res.Scope
	case scope.ReportFinancial:
		res, err := s.FinancialItems(ctx, u)
		if err != nil {
			return nil, err
		}
		data, md = financialSheet(res.Items), res.Scope
	case scope.ReportClinical:
		res, err := s.ClinicalReports(ctx, u)
		if err != nil {
			return nil, err
		}
		data, md = clinicalSheet(res.Items), res.Scope
	case scope.ReportPatientStatistics:
		res, err := s.PatientStatistics(ctx, u)
		if err != nil {
			return nil, err
		}
		data, md = statisticSheet(res.Items), res.Scope
	case scope.ReportDoctorMetrics:
		res, err := s.DoctorMetrics(ctx, u)
		if err != nil {
			return nil, err
		}
		data, md = doctorMetricSheet(res.Items), res.Scope
	case scope.ReportDiseaseTrends:
		res, err := s.DiseaseTrends(ctx, u)
		if err != nil {
			return nil, err
		}
		data, md = diseaseTrendSheet(res.Items), res.Scope
	case scope.ReportUtilization:
		res, err := s.Utilization(ctx, u)
		if err != nil {
			return nil, err
		}
		data, md = utilizationSheet(res.Items), res.Scope
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, report)
	}

	data.Name = string(report)
	return []export.Sheet{data, scopeSheet(md)}, nil
}

func scopeSheet(md scope.Metadata) export.Sheet {
	return export.Sheet{
		Name:   "Scope",
		Header: []string{"Field", "Value"},
		Rows: [][]interface{}{
			{"Role", md.UserRole},
			{"Department", md.UserDepartment},
			{"Filtered", strconv.FormatBool(md.IsFiltered)},
			{"Scope", md.FilterScope},
			{"Reason", md.FilterReason},
		},
	}
}

func patientSheet(items []scope.Patient) export.Sheet {
	s := export.Sheet{Header: []string{"ID", "First name", "Last name", "Age", "Gender", "Department", "Status", "Admitted"}}
	for _, p := range items {
		s.Rows = append(s.Rows, []interface{}{
			p.ID, p.FirstName, p.LastName, p.Age, p.Gender, p.Department, p.Status, p.AdmittedOn.Format(dateLayout),
		})
	}
	return s
}

func appointmentSheet(items []scope.Appointment) export.Sheet {
	s := export.Sheet{Header: []string{"ID", "Patient", "Doctor", "Department", "Type", "Status", "Date"}}
	for _, a := range items {
		s.Rows = append(s.Rows, []interface{}{
			a.ID, a.PatientID, a.DoctorID, a.Department, a.Type, a.Status, a.Date.Format(dateLayout),
		})
	}
	return s
}

func financialSheet(items []scope.FinancialItem) export.Sheet {
	s := export.Sheet{Header: []string{"ID", "Patient", "Department", "Category", "Description", "Amount", "Paid", "Status", "Date"}}
	for _, f := range items {
		s.Rows = append(s.Rows, []interface{}{
			f.ID, f.PatientID, f.Department, f.Category, f.Description, f.Amount, f.Paid, f.Status, f.Date.Format(dateLayout),
		})
	}
	return s
}

func clinicalSheet(items []scope.ClinicalReport) export.Sheet {
	s := export.Sheet{Header: []string{"ID", "Title", "Department", "Category", "Status", "Triage", "Created"}}
	for _, c := range items {
		s.Rows = append(s.Rows, []interface{}{
			c.ID, c.Title, c.Department, c.Category, c.Status, c.IsTriageRelated, c.CreatedOn.Format(dateLayout),
		})
	}
	return s
}

func statisticSheet(items []scope.PatientStatistic) export.Sheet {
	s := export.Sheet{Header: []string{"Age group", "Department", "Patients", "Male", "Female", "Readmissions"}}
	for _, st := range items {
		s.Rows = append(s.Rows, []interface{}{
			st.AgeGroup, st.Department, st.Count, st.Male, st.Female, st.Readmissions,
		})
	}
	return s
}

func doctorMetricSheet(items []scope.DoctorMetric) export.Sheet {
	s := export.Sheet{Header: []string{"Doctor ID", "Doctor", "Department", "Patients seen", "Appointments", "Completed", "Avg consult (min)", "Satisfaction"}}
	for _, m := range items {
		s.Rows = append(s.Rows, []interface{}{
			m.DoctorID, m.DoctorName, m.Department, m.PatientsSeen, m.Appointments, m.CompletedAppointments, m.AvgConsultMinutes, m.SatisfactionScore,
		})
	}
	return s
}

func diseaseTrendSheet(items []scope.DiseaseTrend) export.Sheet {
	s := export.Sheet{Header: []string{"ID", "Disease", "Category", "Department", "Cases", "Previous cases", "Trend"}}
	for _, d := range items {
		s.Rows = append(s.Rows, []interface{}{
			d.ID, d.Disease, d.Category, d.Department, d.Cases, d.PreviousCases, d.Trend,
		})
	}
	return s
}

func utilizationSheet(items []scope.ResourceUtilization) export.Sheet {
	s := export.Sheet{Header: []string{"ID", "Name", "Type", "Department", "Capacity", "In use", "Triage"}}
	for _, r := range items {
		s.Rows = append(s.Rows, []interface{}{
			r.ID, r.Name, r.ResourceType, r.Department, r.Capacity, r.InUse, r.IsTriageRelated,
		})
	}
	return s
}
