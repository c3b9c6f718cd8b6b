package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
)

func TestStaticRoleMapper_Map(t *testing.T) {
	m := StaticRoleMapper{AdminGroup: "support-admins", StaffGroup: "support", MerchantGroup: "merchants"}

	tests := []struct {
		name   string
		groups []string
		want   domainauth.Role
	}{
		{"admin wins over staff", []string{"support", "support-admins"}, domainauth.RoleSupportAdmin},
		{"staff wins over merchant", []string{"merchants", "support"}, domainauth.RoleSupportStaff},
		{"merchant", []string{"merchants"}, domainauth.RoleMerchant},
		{"no match", []string{"everyone"}, domainauth.RolePendingMerchant},
		{"nil groups", nil, domainauth.RolePendingMerchant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Map(tt.groups))
		})
	}
}

func TestStaticRoleMapper_UnsetGroupsNeverMatch(t *testing.T) {
	m := StaticRoleMapper{MerchantGroup: "merchants"}
	assert.Equal(t, domainauth.RolePendingMerchant, m.Map([]string{""}))
	assert.Equal(t, domainauth.RoleMerchant, m.Map([]string{"", "merchants"}))
}
