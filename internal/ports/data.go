package ports

import (
	"context"
	"net/url"
)

// DataFetcher reads business records from the platform data API. Endpoint is relative to
// the API base, e.g. "transactions" or "staff/merchants/m-1/transactions".
type DataFetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values, creds Credentials) ([]byte, error)
}
