package auth

import "sort"

// Permission strings the dashboard gates on. The table may grant any other
// string as well; permissions are compared as opaque atoms.
const (
	PermDashboardView      = "dashboard:overview:view"
	PermPatientsView       = "patients:records:view"
	PermAppointmentsView   = "appointments:schedule:view"
	PermBillingView        = "billing:invoices:view"
	PermClinicalReportView = "reports:clinical:view"
	PermStatisticsView     = "reports:statistics:view"
	PermDoctorMetricsView  = "reports:doctor_metrics:view"
	PermDiseaseTrendsView  = "reports:disease_trends:view"
	PermUtilizationView    = "reports:utilization:view"
	PermReportsExport      = "reports:export"
	PermAuditLogsView      = "admin:audit_logs:view"
)

// PermissionTable maps each role to the set of permissions it holds.
// A table is built once and only read afterwards, so it can be shared
// between goroutines without locking.
type PermissionTable map[Role]map[string]struct{}

// NewPermissionTable builds a table from role -> permission lists.
func NewPermissionTable(grants map[Role][]string) PermissionTable {
	t := make(PermissionTable, len(grants))
	for role, perms := range grants {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		t[role] = set
	}
	return t
}

// Grants reports whether role holds perm.
func (t PermissionTable) Grants(role Role, perm string) bool {
	_, ok := t[role][perm]
	return ok
}

// List returns the permissions held by role, sorted.
func (t PermissionTable) List(role Role) []string {
	set := t[role]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Checker answers screen and action gating questions against a table.
type Checker struct {
	table PermissionTable
}

// NewChecker creates a checker over table.
func NewChecker(table PermissionTable) *Checker {
	return &Checker{table: table}
}

// HasPermission reports whether u may use perm. A nil user, an unknown role
// or an unrecognized permission all yield false.
func (c *Checker) HasPermission(u *User, perm string) bool {
	if c == nil || u == nil || !u.Role.IsKnown() {
		return false
	}
	return c.table.Grants(u.Role, perm)
}

// Permissions returns the sorted permissions granted to u.
func (c *Checker) Permissions(u *User) []string {
	if c == nil || u == nil || !u.Role.IsKnown() {
		return []string{}
	}
	return c.table.List(u.Role)
}

// Table exposes the underlying table, read-only by convention.
func (c *Checker) Table() PermissionTable {
	if c == nil {
		return nil
	}
	return c.table
}
