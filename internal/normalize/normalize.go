package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rohmanhakim/silent-crawler/pkg/urlutil"
)

/*
Responsibilities
- Turn a raw href plus the page it was found on into a canonical absolute URL
- Reject hrefs that can never be crawled
- Derive the directory of a canonical URL

Normalize is pure: no I/O, no crawl state.
*/

var rejectedPrefixes = []string{"javascript:", "mailto:", "tel:", "data:"}

// leadingScheme matches an RFC 3986 scheme followed by "://" at the start of a string.
var leadingScheme = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// Normalize resolves href against base and returns its canonical form.
// Relative, ./, ../, absolute-path and protocol-relative references are supported.
// Normalizing an already canonical URL returns it unchanged.
func Normalize(href string, base url.URL) (url.URL, error) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return url.URL{}, &NormalizationError{
			Message: "href is empty",
			Cause:   ErrCauseEmptyHref,
		}
	}

	if strings.HasPrefix(trimmed, "#") {
		return url.URL{}, &NormalizationError{
			Message: trimmed,
			Cause:   ErrCauseFragmentOnly,
		}
	}

	if hasRejectedPrefix(trimmed) {
		return url.URL{}, &NormalizationError{
			Message: trimmed,
			Cause:   ErrCauseUnsupportedScheme,
		}
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return url.URL{}, &NormalizationError{
			Message: err.Error(),
			Cause:   ErrCauseUnparsable,
		}
	}

	resolved := base.ResolveReference(ref)

	scheme := strings.ToLower(resolved.Scheme)
	if scheme != "http" && scheme != "https" {
		return url.URL{}, &NormalizationError{
			Message: resolved.String(),
			Cause:   ErrCauseUnsupportedScheme,
		}
	}

	if resolved.Hostname() == "" {
		return url.URL{}, &NormalizationError{
			Message: resolved.String(),
			Cause:   ErrCauseMissingHost,
		}
	}

	return urlutil.Canonicalize(*resolved), nil
}

// ParseSeed parses the crawl's starting URL. A URL without a leading
// scheme gets http://, even when "://" appears later in its path or query.
func ParseSeed(raw string) (url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && !leadingScheme.MatchString(trimmed) && !hasRejectedPrefix(trimmed) {
		trimmed = "http://" + trimmed
	}
	return Normalize(trimmed, url.URL{})
}

func hasRejectedPrefix(s string) bool {
	lowered := strings.ToLower(s)
	for _, prefix := range rejectedPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

// Directory returns the path of u truncated after its last '/'.
// The root path "/" is a directory.
func Directory(u url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		return "/"
	}
	return path[:strings.LastIndex(path, "/")+1]
}
