package authroles

import (
	domainauth "github.com/pigbank/console-api/internal/domain/auth"
)

// StaticRoleMapper maps IdP groups to console roles by membership.
// The most privileged matching group wins; a user in no configured group is a pending merchant.
type StaticRoleMapper struct {
	AdminGroup    string
	StaffGroup    string
	MerchantGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	for _, rule := range []struct {
		group string
		role  domainauth.Role
	}{
		{m.AdminGroup, domainauth.RoleSupportAdmin},
		{m.StaffGroup, domainauth.RoleSupportStaff},
		{m.MerchantGroup, domainauth.RoleMerchant},
	} {
		if rule.group == "" {
			continue
		}
		if _, ok := set[rule.group]; ok {
			return rule.role
		}
	}
	return domainauth.RolePendingMerchant
}
