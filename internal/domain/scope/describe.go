package scope

import (
	"fmt"
	"strings"

	"github.com/ehr/dashboard/internal/platform/auth"
)

// Metadata explains a filtering decision for the UI banner. It is prose
// only and never drives filtering.
type Metadata struct {
	IsFiltered     bool   `json:"is_filtered"`
	FilterReason   string `json:"filter_reason"`
	FilterScope    string `json:"filter_scope"`
	UserRole       string `json:"user_role"`
	UserDepartment string `json:"user_department,omitempty"`
}

const (
	scopeAllData = "All data"
	scopeNoData  = "No data"
)

// DescribeScope reports why and how report was filtered for u, given the
// collection size before and after filtering.
func DescribeScope(u *auth.User, report ReportType, total, filtered int) Metadata {
	if u == nil {
		return Metadata{
			IsFiltered:   true,
			FilterReason: "Not authenticated: no data is shown",
			FilterScope:  scopeNoData,
			UserRole:     auth.RoleUnknown.String(),
		}
	}

	p, ok := policies[report]
	if !ok {
		p = genericPolicy
	}
	counts := fmt.Sprintf("(%d of %d records)", filtered, total)

	md := Metadata{
		UserRole:       u.Role.String(),
		UserDepartment: u.Department,
	}

	switch u.Role {
	case auth.RoleAdministrator:
		md.IsFiltered = false
		md.FilterReason = "Administrator access: all records are shown " + counts
		md.FilterScope = scopeAllData

	case auth.RoleDoctor:
		md.IsFiltered = true
		if p.selfScoped {
			md.FilterReason = "Doctor access limited to your own performance metrics " + counts
			md.FilterScope = "Own metrics"
			break
		}
		dept := "your department"
		scopeName := "Your department"
		if u.HasDepartment() {
			dept = "the " + u.Department + " department"
			scopeName = "Department: " + u.Department
		}
		md.FilterReason = fmt.Sprintf("Doctor access limited to %s and records without a department %s", dept, counts)
		md.FilterScope = scopeName

	case auth.RoleAuxiliaryNurse:
		md.IsFiltered = p.nurse != nurseAll || filtered < total
		md.FilterReason = fmt.Sprintf("Nurse access limited to %s %s", p.nurseScope, counts)
		md.FilterScope = capitalize(p.nurseScope)

	default:
		md.IsFiltered = true
		md.FilterReason = "Your role has no access to this data " + counts
		md.FilterScope = scopeNoData
	}
	return md
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
