package oidc

import (
	"cmp"
	"strings"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
)

// claimNames holds the IdP-specific claim keys for groups and merchant linkage.
type claimNames struct {
	groups   string
	merchant string
}

func newClaimNames(groups, merchant string) claimNames {
	return claimNames{
		groups:   cmp.Or(groups, "groups"),
		merchant: cmp.Or(merchant, "merchant_id"),
	}
}

// consoleClaims is what the console reads from an ID token or userinfo response.
type consoleClaims struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Groups     []string
	MerchantID string
	DemoActive bool
	Nonce      string
}

func (n claimNames) parse(m map[string]any) consoleClaims {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return consoleClaims{
		Subject:    str("sub"),
		Email:      str("email"),
		GivenName:  str("given_name"),
		FamilyName: str("family_name"),
		Groups:     stringList(m[n.groups]),
		MerchantID: str(n.merchant),
		DemoActive: truthy(m["demo_active"]),
		Nonce:      str("nonce"),
	}
}

func (c consoleClaims) incomplete() bool { return c.Subject == "" || c.Email == "" }

// fill copies fields c is missing from o. Groups are taken only when c has none.
func (c *consoleClaims) fill(o consoleClaims) {
	c.Subject = cmp.Or(c.Subject, o.Subject)
	c.Email = cmp.Or(c.Email, o.Email)
	c.GivenName = cmp.Or(c.GivenName, o.GivenName)
	c.FamilyName = cmp.Or(c.FamilyName, o.FamilyName)
	c.MerchantID = cmp.Or(c.MerchantID, o.MerchantID)
	if len(c.Groups) == 0 {
		c.Groups = o.Groups
	}
	c.DemoActive = c.DemoActive || o.DemoActive
}

func (c consoleClaims) identity() domainauth.Identity {
	return domainauth.Identity{
		UserID:     c.Subject,
		FirstName:  c.GivenName,
		LastName:   c.FamilyName,
		Email:      c.Email,
		Groups:     c.Groups,
		MerchantID: c.MerchantID,
		DemoActive: c.DemoActive,
	}
}

// stringList accepts a JSON array of strings or one space separated string.
func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, _ := item.(string); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}
