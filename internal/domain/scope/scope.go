// Package scope rewrites logical data resources into the concrete endpoint and cache key
// to use for a request, given the caller's role and impersonation state.
package scope

import (
	"net/url"
	"sort"
	"strings"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/domain/impersonation"
)

// Resource is a logical data collection name.
type Resource string

const (
	ResourceTransactions     Resource = "transactions"
	ResourceInvoices         Resource = "invoices"
	ResourcePayouts          Resource = "payouts"
	ResourceCustomers        Resource = "customers"
	ResourceTeam             Resource = "team"
	ResourceCheckoutSettings Resource = "checkout-settings"
)

// PerMerchantResources lists the resources with a staff-scoped endpoint.
func PerMerchantResources() []Resource {
	return []Resource{
		ResourceTransactions,
		ResourceInvoices,
		ResourcePayouts,
		ResourceCustomers,
		ResourceTeam,
		ResourceCheckoutSettings,
	}
}

// Session is the immutable (role, impersonation) value threaded through a request.
type Session struct {
	Role          domainauth.Role
	Impersonation impersonation.State
	// Initialized is false until impersonation state has been hydrated from storage.
	Initialized bool
}

// Impersonating reports whether the session is a staff member viewing a merchant.
func (s Session) Impersonating() bool {
	return s.Role.IsStaff() && s.Impersonation.Active()
}

// Target returns the impersonation target when the session is impersonating.
func (s Session) Target() (impersonation.Target, bool) {
	if !s.Impersonating() {
		return impersonation.Target{}, false
	}
	return s.Impersonation.Target()
}

// Mode describes which endpoint shape a resolution used.
type Mode string

const (
	ModeDefault  Mode = "default"
	ModeScoped   Mode = "scoped"
	ModeFallback Mode = "fallback" // impersonating, but the target id was unusable
)

// Scope is the output of Resolve.
type Scope struct {
	Resource   Resource `json:"resource"`
	Endpoint   string   `json:"endpoint"`
	CacheKey   string   `json:"cache_key"`
	MerchantID string   `json:"merchant_id,omitempty"`
	Mode       Mode     `json:"mode"`
}

// Resolver maps logical resources to endpoints. The zero value is not usable; use
// NewResolver.
type Resolver struct {
	defaults map[Resource]string
	scoped   map[Resource]string // path segment under staff/merchants/{id}/
}

// NewResolver returns a Resolver for the per-merchant resources.
func NewResolver() *Resolver {
	r := &Resolver{
		defaults: make(map[Resource]string),
		scoped:   make(map[Resource]string),
	}
	for _, res := range PerMerchantResources() {
		r.defaults[res] = string(res)
		r.scoped[res] = string(res)
	}
	return r
}

// Known reports whether res has a staff-scoped equivalent.
func (r *Resolver) Known(res Resource) bool {
	_, ok := r.scoped[res]
	return ok
}

// Resolve returns the endpoint and cache key for res.
//
// Staff viewing a merchant get the staff-scoped endpoint for per-merchant resources and a
// cache key discriminated by merchant id. Everyone else, resources without a scoped
// equivalent, and malformed targets get the default endpoint.
func (r *Resolver) Resolve(res Resource, sess Session, params url.Values) Scope {
	def := r.defaultEndpoint(res)
	out := Scope{
		Resource: res,
		Endpoint: def,
		CacheKey: cacheKey(res, "", params),
		Mode:     ModeDefault,
	}

	target, ok := sess.Target()
	if !ok {
		return out
	}
	seg, scoped := r.scoped[res]
	if !scoped {
		return out
	}
	if !impersonation.ValidMerchantID(target.MerchantID) {
		out.Mode = ModeFallback
		return out
	}

	out.Endpoint = "staff/merchants/" + url.PathEscape(target.MerchantID) + "/" + seg
	out.CacheKey = cacheKey(res, target.MerchantID, params)
	out.MerchantID = target.MerchantID
	out.Mode = ModeScoped
	return out
}

func (r *Resolver) defaultEndpoint(res Resource) string {
	if ep, ok := r.defaults[res]; ok {
		return ep
	}
	return strings.Trim(string(res), "/")
}

// cacheKey builds "resource[@merchant:<id>][?sorted-params]".
func cacheKey(res Resource, merchantID string, params url.Values) string {
	var b strings.Builder
	b.WriteString(string(res))
	if merchantID != "" {
		b.WriteString("@merchant:")
		b.WriteString(merchantID)
	}
	if len(params) > 0 {
		enc := make(url.Values, len(params))
		for k, vs := range params {
			sorted := append([]string(nil), vs...)
			sort.Strings(sorted)
			enc[k] = sorted
		}
		// Encode orders by key.
		b.WriteByte('?')
		b.WriteString(enc.Encode())
	}
	return b.String()
}
