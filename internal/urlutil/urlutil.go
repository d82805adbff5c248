package urlutil

import (
	"net/url"
	"strings"
)

// CleanReferrer keeps scheme, host and path of an http(s) referrer. Query and
// fragment are dropped since they often carry tracking or session tokens.
// Anything that is not an absolute http(s) URL becomes "".
func CleanReferrer(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ""
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	cleaned := url.URL{Scheme: scheme, Host: strings.ToLower(parsed.Host), Path: parsed.Path}
	return cleaned.String()
}
