package auth

import (
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"pending-merchant", RolePendingMerchant},
		{"merchant", RoleMerchant},
		{"support-staff", RoleSupportStaff},
		{" Support-Admin ", RoleSupportAdmin},
		{"admin", RoleUnknown},
		{"", RoleUnknown},
		{"merchant ; drop", RoleUnknown},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRole_IsStaff(t *testing.T) {
	if !RoleSupportStaff.IsStaff() || !RoleSupportAdmin.IsStaff() {
		t.Fatalf("expected staff roles to be staff")
	}
	for _, r := range []Role{RoleMerchant, RolePendingMerchant, RoleUnknown, Role("root")} {
		if r.IsStaff() {
			t.Fatalf("did not expect %q to be staff", r)
		}
	}
}

func TestResolution_Role(t *testing.T) {
	if Pending().Role() != RoleUnknown {
		t.Fatalf("pending resolution must not carry a role")
	}
	if Resolved(nil).State != ResolutionAbsent {
		t.Fatalf("nil session must resolve as absent")
	}
	r := Resolved(&Session{ID: "s", Role: RoleMerchant})
	if r.State != ResolutionResolved || r.Role() != RoleMerchant {
		t.Fatalf("unexpected resolution: %+v", r)
	}
}
