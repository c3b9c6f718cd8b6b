// Package testutil provides testing utilities and helpers for the console API.
package testutil

import (
	"time"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/domain/impersonation"
)

// SessionBuilder provides a fluent interface for building auth sessions in tests.
type SessionBuilder struct {
	sess domainauth.Session
}

// NewSession creates a SessionBuilder for a merchant with one hour left.
func NewSession() *SessionBuilder {
	return &SessionBuilder{
		sess: domainauth.Session{
			ID:         "sess-1",
			UserID:     "user-1",
			FirstName:  "Test",
			LastName:   "User",
			Email:      "test.user@example.com",
			Role:       domainauth.RoleMerchant,
			MerchantID: "m-own",
			ExpiresAt:  time.Now().Add(time.Hour),
		},
	}
}

// WithID sets the session id.
func (b *SessionBuilder) WithID(id string) *SessionBuilder {
	b.sess.ID = id
	return b
}

// WithRole sets the role. Staff roles drop the linked merchant.
func (b *SessionBuilder) WithRole(role domainauth.Role) *SessionBuilder {
	b.sess.Role = role
	if role.IsStaff() {
		b.sess.MerchantID = ""
	}
	return b
}

// WithMerchant links the session to a merchant account.
func (b *SessionBuilder) WithMerchant(id string) *SessionBuilder {
	b.sess.MerchantID = id
	return b
}

// WithDemo marks the session as running the product demo.
func (b *SessionBuilder) WithDemo() *SessionBuilder {
	b.sess.DemoActive = true
	return b
}

// ExpiresIn sets the expiry relative to now.
func (b *SessionBuilder) ExpiresIn(d time.Duration) *SessionBuilder {
	b.sess.ExpiresAt = time.Now().Add(d)
	return b
}

// Build returns the session.
func (b *SessionBuilder) Build() domainauth.Session {
	return b.sess
}

// BuildPtr returns a pointer to a copy of the session.
func (b *SessionBuilder) BuildPtr() *domainauth.Session {
	s := b.sess
	return &s
}

// Staff returns a support-staff session with the given id.
func Staff(id string) domainauth.Session {
	return NewSession().WithID(id).WithRole(domainauth.RoleSupportStaff).Build()
}

// Acme returns the merchant fixture used across console tests.
func Acme() impersonation.Merchant {
	return impersonation.Merchant{
		ID:        "m-1",
		LegalName: "Acme Corporation Ltd",
		TradeName: "Acme Corp",
		Status:    impersonation.MerchantStatusApproved,
		CreatedAt: TestTime(),
	}
}
