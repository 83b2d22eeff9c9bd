package schema

import "strings"

func isAbsolute(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

// SiteURL resolves an on-site path against the request origin. Absolute
// URLs are returned unchanged and empty input yields "".
func SiteURL(origin, pathOrURL string) string {
	v := strings.TrimSpace(pathOrURL)
	if v == "" {
		return ""
	}
	if isAbsolute(v) {
		return v
	}
	if !strings.HasPrefix(v, "/") {
		v = "/" + v
	}
	return strings.TrimRight(origin, "/") + v
}

// MediaURL resolves an upstream asset path against the media base.
func MediaURL(base, pathOrURL string) string {
	v := strings.TrimSpace(pathOrURL)
	if v == "" {
		return ""
	}
	if isAbsolute(v) {
		return v
	}
	if !strings.HasPrefix(v, "/") {
		v = "/" + v
	}
	return strings.TrimRight(base, "/") + v
}

// ExternalURL accepts only absolute http(s) URLs. Bare handles and other
// values are dropped.
func ExternalURL(v string) string {
	v = strings.TrimSpace(v)
	if isAbsolute(v) {
		return v
	}
	return ""
}
