package navigation

import (
	domainauth "github.com/pigbank/console-api/internal/domain/auth"
)

// Well-known locations used as catch-all targets.
const (
	LandingPath    = "/"
	StaffHomePath  = "/staff"
	OnboardingPath = "/onboarding"
)

var publicRoutes = []Route{
	{Name: "landing", Pattern: "/"},
	{Name: "about", Pattern: "/about"},
	{Name: "pricing", Pattern: "/pricing"},
	{Name: "contact", Pattern: "/contact"},
	{Name: "privacy", Pattern: "/privacy"},
	{Name: "terms", Pattern: "/terms"},
}

var authRoutes = []Route{
	{Name: "login", Pattern: "/login"},
	{Name: "register", Pattern: "/register"},
	{Name: "forgot-password", Pattern: "/forgot-password"},
}

// productRoutes is the operational merchant surface.
var productRoutes = []Route{
	{Name: "dashboard", Pattern: "/dashboard"},
	{Name: "transactions", Pattern: "/transactions"},
	{Name: "transaction", Pattern: "/transactions/{id}"},
	{Name: "invoices", Pattern: "/invoices"},
	{Name: "invoice-new", Pattern: "/invoices/new"},
	{Name: "invoice", Pattern: "/invoices/{id}"},
	{Name: "payouts", Pattern: "/payouts"},
	{Name: "payout", Pattern: "/payouts/{id}"},
	{Name: "customers", Pattern: "/customers"},
	{Name: "customer", Pattern: "/customers/{id}"},
	{Name: "team", Pattern: "/team"},
	{Name: "checkout-settings", Pattern: "/checkout-settings"},
	{Name: "account", Pattern: "/account"},
}

var staffRoutes = []Route{
	{Name: "staff-home", Pattern: StaffHomePath},
	{Name: "staff-merchants", Pattern: "/staff/merchants"},
	{Name: "staff-merchants-approved", Pattern: "/staff/merchants/approved"},
	{Name: "staff-merchant", Pattern: "/staff/merchants/{id}"},
	{Name: "staff-messages", Pattern: "/staff/messages"},
	{Name: "staff-compliance", Pattern: "/staff/compliance"},
	{Name: "staff-team", Pattern: "/staff/team"},
}

var onboardingRoutes = []Route{
	{Name: "onboarding", Pattern: OnboardingPath},
	{Name: "onboarding-step", Pattern: "/onboarding/{step}"},
}

func concat(groups ...[]Route) []Route {
	var out []Route
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func demo(routes []Route) []Route {
	out := make([]Route, len(routes))
	for i, r := range routes {
		r.Demo = true
		out[i] = r
	}
	return out
}

var (
	unauthenticatedTable = Table{
		Kind:     TableUnauthenticated,
		routes:   concat(publicRoutes, authRoutes, demo(productRoutes)),
		fallback: Fallback{Kind: FallbackRedirect, Location: LandingPath},
	}
	merchantTable = Table{
		Kind:     TableMerchant,
		routes:   concat(publicRoutes, productRoutes),
		fallback: Fallback{Kind: FallbackNotFound},
	}
	supportTable = Table{
		Kind:     TableSupport,
		routes:   concat(staffRoutes, publicRoutes, productRoutes),
		fallback: Fallback{Kind: FallbackRedirect, Location: StaffHomePath},
	}
	pendingMerchantTable = Table{
		Kind: TablePendingMerchant,
		routes: concat(onboardingRoutes, []Route{
			{Name: "contact", Pattern: "/contact"},
			{Name: "privacy", Pattern: "/privacy"},
			{Name: "terms", Pattern: "/terms"},
			{Name: "login", Pattern: "/login"},
		}),
		fallback: Fallback{Kind: FallbackRedirect, Location: OnboardingPath},
	}
)

// Selection is the output of SelectRouteTable: either a loading indicator or a table.
type Selection struct {
	Loading bool
	Table   Table
}

// SelectRouteTable picks the route table for a resolution state and role.
// No navigation decision is made while identity is pending. Unknown roles get the
// pending-merchant table, the most restrictive one.
func SelectRouteTable(state domainauth.ResolutionState, role domainauth.Role) Selection {
	switch state {
	case domainauth.ResolutionPending:
		return Selection{Loading: true}
	case domainauth.ResolutionAbsent:
		return Selection{Table: unauthenticatedTable}
	case domainauth.ResolutionResolved:
		return Selection{Table: tableForRole(role)}
	default:
		return Selection{Loading: true}
	}
}

func tableForRole(role domainauth.Role) Table {
	switch role {
	case domainauth.RoleSupportStaff, domainauth.RoleSupportAdmin:
		return supportTable
	case domainauth.RoleMerchant:
		return merchantTable
	case domainauth.RolePendingMerchant, domainauth.RoleUnknown:
		return pendingMerchantTable
	default:
		return pendingMerchantTable
	}
}

// TableFor returns the table of the given kind. Used by tests and diagnostics.
func TableFor(kind TableKind) (Table, bool) {
	switch kind {
	case TableUnauthenticated:
		return unauthenticatedTable, true
	case TableSupport:
		return supportTable, true
	case TablePendingMerchant:
		return pendingMerchantTable, true
	case TableMerchant:
		return merchantTable, true
	default:
		return Table{}, false
	}
}
