package auth

import (
	"context"
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"Administrator", RoleAdministrator},
		{"Doctor", RoleDoctor},
		{"AuxiliaryNurse", RoleAuxiliaryNurse},
		{"  Doctor ", RoleDoctor},
		{"doctor", RoleUnknown},
		{"Nurse", RoleUnknown},
		{"", RoleUnknown},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRole_String(t *testing.T) {
	if RoleAuxiliaryNurse.String() != "AuxiliaryNurse" {
		t.Errorf("got %q", RoleAuxiliaryNurse.String())
	}
	if Role(99).String() != "Unknown" {
		t.Errorf("out-of-range role should print Unknown, got %q", Role(99).String())
	}
	if Role(99).IsKnown() || RoleUnknown.IsKnown() {
		t.Error("unknown roles must not report IsKnown")
	}
}

func TestRole_JSONRoundTrip(t *testing.T) {
	u := User{ID: "u1", Role: RoleDoctor, Department: "Cardiology"}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if m["role"] != "Doctor" {
		t.Errorf("role encoded as %v, want \"Doctor\"", m["role"])
	}

	var back User
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	if back.Role != RoleDoctor {
		t.Errorf("decoded role = %v, want Doctor", back.Role)
	}
}

func TestUser_DisplayName(t *testing.T) {
	if got := (&User{ID: "u1", FirstName: "Ana", LastName: "Ruiz"}).DisplayName(); got != "Ana Ruiz" {
		t.Errorf("got %q", got)
	}
	if got := (&User{ID: "u1"}).DisplayName(); got != "u1" {
		t.Errorf("expected ID fallback, got %q", got)
	}
	var nilUser *User
	if nilUser.DisplayName() != "" || nilUser.HasDepartment() {
		t.Error("nil user should have no name and no department")
	}
}

func TestUserContext(t *testing.T) {
	if UserFromContext(context.Background()) != nil {
		t.Fatal("expected nil user on empty context")
	}

	u := &User{ID: "u1", Role: RoleAdministrator}
	ctx := WithUser(context.Background(), u)
	if got := UserFromContext(ctx); got != u {
		t.Errorf("got %+v, want %+v", got, u)
	}
}
