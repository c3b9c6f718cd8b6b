package httpx

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// queryInt reads an integer query parameter. Missing or malformed values yield def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return n
}

// parseBoolQuery reports whether a query param is a true boolean.
func parseBoolQuery(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && b
}

// ParseLimitOffset reads limit and offset, clamping limit to [1, maxLimit] and offset
// to be non-negative.
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (int, int) {
	maxLimit = max(maxLimit, 1)
	limit := min(max(queryInt(r, "limit", defLimit), 1), maxLimit)
	offset := max(queryInt(r, "offset", 0), 0)
	return limit, offset
}

// safeRedirectPath keeps post-login and logout redirects on this origin. Anything that
// is not a rooted relative path becomes "/".
func safeRedirectPath(candidate string) string {
	if !strings.HasPrefix(candidate, "/") || strings.HasPrefix(candidate, "//") ||
		strings.HasPrefix(candidate, `/\`) {
		return "/"
	}
	if u, err := url.Parse(candidate); err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return candidate
}

// isSecureRequest reports whether the browser reached us over TLS, directly or through
// a proxy that sets X-Forwarded-Proto.
func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
