package auth

import (
	"reflect"
	"testing"
)

func testTable() PermissionTable {
	return NewPermissionTable(map[Role][]string{
		RoleAdministrator:  {PermDashboardView, PermBillingView, PermReportsExport},
		RoleDoctor:         {PermDashboardView, PermBillingView},
		RoleAuxiliaryNurse: {PermDashboardView},
	})
}

func TestChecker_HasPermission(t *testing.T) {
	checker := NewChecker(testTable())

	tests := []struct {
		name string
		user *User
		perm string
		want bool
	}{
		{"admin billing", &User{Role: RoleAdministrator}, PermBillingView, true},
		{"doctor billing", &User{Role: RoleDoctor}, PermBillingView, true},
		{"nurse billing", &User{Role: RoleAuxiliaryNurse}, PermBillingView, false},
		{"nurse dashboard", &User{Role: RoleAuxiliaryNurse}, PermDashboardView, true},
		{"doctor export", &User{Role: RoleDoctor}, PermReportsExport, false},
		{"unrecognized permission", &User{Role: RoleAdministrator}, "billing:invoices:delete", false},
		{"empty permission", &User{Role: RoleAdministrator}, "", false},
		{"nil user", nil, PermDashboardView, false},
		{"unknown role", &User{Role: RoleUnknown}, PermDashboardView, false},
		{"out of range role", &User{Role: Role(7)}, PermDashboardView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.HasPermission(tt.user, tt.perm); got != tt.want {
				t.Errorf("HasPermission = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChecker_UnknownRoleKeyInTableGrantsNothing(t *testing.T) {
	table := testTable()
	table[Role(9)] = map[string]struct{}{PermDashboardView: {}}
	checker := NewChecker(table)

	if checker.HasPermission(&User{Role: Role(9)}, PermDashboardView) {
		t.Error("roles outside the closed set must never be granted")
	}
}

func TestChecker_NilChecker(t *testing.T) {
	var c *Checker
	if c.HasPermission(&User{Role: RoleAdministrator}, PermDashboardView) {
		t.Error("nil checker must deny")
	}
	if got := c.Permissions(&User{Role: RoleAdministrator}); len(got) != 0 {
		t.Errorf("expected no permissions, got %v", got)
	}
}

func TestChecker_Permissions(t *testing.T) {
	checker := NewChecker(testTable())

	got := checker.Permissions(&User{Role: RoleDoctor})
	want := []string{PermBillingView, PermDashboardView}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Permissions = %v, want %v", got, want)
	}

	none := checker.Permissions(nil)
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}
