package ports

import (
	"context"
	"time"

	"github.com/pigbank/console-api/internal/domain/impersonation"
)

// ViewKey addresses the durable state of one view session: an authenticated session
// seen through one browser tab.
type ViewKey struct {
	SessionID string
	TabID     string
}

// Valid reports whether both parts are present.
func (k ViewKey) Valid() bool { return k.SessionID != "" && k.TabID != "" }

// ViewStorage is session-scoped durable storage for view state. Values are opaque bytes;
// callers own the encoding.
type ViewStorage interface {
	// Load returns the stored value and whether it exists.
	Load(ctx context.Context, key ViewKey) ([]byte, bool, error)
	// Store writes value; ttl bounds its lifetime (zero means storage default).
	Store(ctx context.Context, key ViewKey, value []byte, ttl time.Duration) error
	// Remove deletes the value. Removing a missing value is not an error.
	Remove(ctx context.Context, key ViewKey) error
	// Clear removes every view value belonging to sessionID.
	Clear(ctx context.Context, sessionID string) error
}

// MerchantFilter narrows a merchant directory listing.
type MerchantFilter struct {
	ApprovedOnly bool
	Query        string
	Limit        int
	Offset       int
}

// MerchantDirectory is the staff-only merchant listing used to pick an impersonation target.
type MerchantDirectory interface {
	List(ctx context.Context, filter MerchantFilter) ([]impersonation.Merchant, error)
	GetByID(ctx context.Context, id string) (*impersonation.Merchant, error)
}

// CacheRepository stores rendered data responses keyed by principal and scope. A miss is
// a nil slice with a nil error; a zero TTL means the entry never expires.
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	Health(ctx context.Context) error
}
