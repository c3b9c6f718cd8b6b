package impersonation

import "time"

// MerchantStatus is the onboarding status of a merchant account.
type MerchantStatus string

const (
	MerchantStatusPending  MerchantStatus = "pending"
	MerchantStatusApproved MerchantStatus = "approved"
	MerchantStatusRejected MerchantStatus = "rejected"
)

// Merchant is a directory entry staff can pick as an impersonation target.
type Merchant struct {
	ID        string         `json:"id"                   db:"id"`
	LegalName string         `json:"legal_name"           db:"legal_name"`
	TradeName string         `json:"trade_name,omitempty" db:"trade_name"`
	Status    MerchantStatus `json:"status"               db:"status"`
	CreatedAt time.Time      `json:"created_at"           db:"created_at"`
}

// Valid reports whether s is a known status.
func (s MerchantStatus) Valid() bool {
	switch s {
	case MerchantStatusPending, MerchantStatusApproved, MerchantStatusRejected:
		return true
	default:
		return false
	}
}

// Target converts the directory entry to an impersonation target.
func (m Merchant) Target() Target {
	return Target{MerchantID: m.ID, LegalName: m.LegalName, TradeName: m.TradeName}
}
