// Package scope decides which records of each dashboard collection a user
// may see.
//
// Every filter follows the same dispatch on role:
//
//   - nil user: nothing
//   - Administrator: everything
//   - Doctor: records of their department plus records with no department;
//     nothing when the doctor has no department. Doctor metrics are the
//     exception and match on the doctor's own ID.
//   - AuxiliaryNurse: a per-family predicate (see the policies table)
//   - any other role: nothing
//
// Filters never mutate their input and always return a new, non-nil slice.
package scope

import "github.com/ehr/dashboard/internal/platform/auth"

func apply[T any](u *auth.User, items []T, r rule[T]) []T {
	out := make([]T, 0, len(items))
	if u == nil {
		return out
	}

	switch u.Role {
	case auth.RoleAdministrator:
		return append(out, items...)

	case auth.RoleDoctor:
		if r.selfScoped {
			if u.ID == "" {
				return out
			}
			for _, it := range items {
				if r.owner(it) == u.ID {
					out = append(out, it)
				}
			}
			return out
		}
		if !u.HasDepartment() {
			return out
		}
		for _, it := range items {
			if departmentMatches(r.department(it), u.Department) {
				out = append(out, it)
			}
		}
		return out

	case auth.RoleAuxiliaryNurse:
		switch r.nurse {
		case nurseAll:
			return append(out, items...)
		case nursePartial:
			for _, it := range items {
				if r.nurseKeeps(it) {
					out = append(out, it)
				}
			}
			return out
		default:
			return out
		}

	default:
		return out
	}
}

// departmentMatches treats an unset item department as visible to every
// department-bound user.
func departmentMatches(itemDept, userDept string) bool {
	return itemDept == "" || itemDept == userDept
}

// FilterPatients returns the patients u may see.
func FilterPatients(u *auth.User, items []Patient) []Patient {
	return apply(u, items, patientRule)
}

// FilterAppointments returns the appointments u may see.
func FilterAppointments(u *auth.User, items []Appointment) []Appointment {
	return apply(u, items, appointmentRule)
}

// FilterFinancialItems returns the billing line items u may see. Nurses
// see none.
func FilterFinancialItems(u *auth.User, items []FinancialItem) []FinancialItem {
	return apply(u, items, financialRule)
}

// FilterClinicalReports returns the clinical reports u may see. Nurses see
// triage-related reports only.
func FilterClinicalReports(u *auth.User, items []ClinicalReport) []ClinicalReport {
	return apply(u, items, clinicalRule)
}

// FilterPatientStatistics returns the age-bucket rows u may see.
func FilterPatientStatistics(u *auth.User, items []PatientStatistic) []PatientStatistic {
	return apply(u, items, patientStatisticRule)
}

// FilterDoctorMetrics returns the performance rows u may see. Doctors see
// only their own rows, whatever their department.
func FilterDoctorMetrics(u *auth.User, items []DoctorMetric) []DoctorMetric {
	return apply(u, items, doctorMetricRule)
}

// FilterDiseaseTrends returns the disease trends u may see. Nurses see
// communicable diseases only.
func FilterDiseaseTrends(u *auth.User, items []DiseaseTrend) []DiseaseTrend {
	return apply(u, items, diseaseTrendRule)
}

// FilterResourceUtilization returns the utilization records u may see.
// Nurses see beds and triage facilities.
func FilterResourceUtilization(u *auth.User, items []ResourceUtilization) []ResourceUtilization {
	return apply(u, items, utilizationRule)
}
