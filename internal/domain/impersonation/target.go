// Package impersonation holds the "viewing as merchant" state carried by support staff.
package impersonation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pigbank/console-api/internal/domain/navigation"
)

// Target is the merchant a support operator is currently viewing as.
type Target struct {
	MerchantID string `json:"merchant_id"`
	LegalName  string `json:"legal_name,omitempty"`
	TradeName  string `json:"trade_name,omitempty"`
}

var merchantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidMerchantID reports whether id is safe to embed in an endpoint path.
func ValidMerchantID(id string) bool {
	return merchantIDPattern.MatchString(id)
}

// DisplayName returns the trade name, falling back to the legal name and then the id.
func (t Target) DisplayName() string {
	if n := strings.TrimSpace(t.TradeName); n != "" {
		return n
	}
	if n := strings.TrimSpace(t.LegalName); n != "" {
		return n
	}
	return t.MerchantID
}

// ErrMalformedTarget is returned by Decode for data that cannot be a stored target.
var ErrMalformedTarget = errors.New("malformed impersonation target")

// Encode serializes t for session-scoped storage.
func Encode(t Target) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal impersonation target: %w", err)
	}
	return b, nil
}

// Decode parses a stored target. Unparsable data or a missing merchant id is malformed.
func Decode(data []byte) (Target, error) {
	var t Target
	if err := json.Unmarshal(data, &t); err != nil {
		return Target{}, errors.Join(ErrMalformedTarget, err)
	}
	if strings.TrimSpace(t.MerchantID) == "" {
		return Target{}, fmt.Errorf("%w: merchant_id is empty", ErrMalformedTarget)
	}
	return t, nil
}

// State is either Empty or Viewing(target). The zero value is Empty.
type State struct {
	target *Target
}

// Empty returns the empty state.
func Empty() State { return State{} }

// Viewing returns a state viewing t.
func Viewing(t Target) State {
	cp := t
	return State{target: &cp}
}

// Active reports whether the state is Viewing.
func (s State) Active() bool { return s.target != nil }

// Target returns the viewed target and whether one is set.
func (s State) Target() (Target, bool) {
	if s.target == nil {
		return Target{}, false
	}
	return *s.target, true
}

// Equal reports whether both states hold the same target.
func (s State) Equal(o State) bool {
	a, aok := s.Target()
	b, bok := o.Target()
	return aok == bok && a == b
}

// exitRoutes is a reviewed allow-list. New staff screens do not join automatically.
var exitRoutes = map[string]struct{}{
	"/staff/merchants":          {},
	"/staff/merchants/approved": {},
	navigation.LandingPath:      {},
	navigation.StaffHomePath:    {},
}

// IsExitRoute reports whether arriving at p must clear impersonation.
func IsExitRoute(p string) bool {
	_, ok := exitRoutes[navigation.NormalizePath(p)]
	return ok
}

// ExitRoutes returns the exit-route allow-list.
func ExitRoutes() []string {
	out := make([]string, 0, len(exitRoutes))
	for p := range exitRoutes {
		out = append(out, p)
	}
	return out
}
