package urlutil

import (
	"net/url"
	"strings"
)

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// It maps equivalent URL spellings to a single canonical representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased, a trailing dot on the host is dropped
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//   - Fragments are removed
//   - Query parameters are kept; they are part of the URL identity
//   - Empty path becomes "/" and duplicate separators are collapsed
//   - A directory-like path (last segment without a '.') always ends with "/"
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
//   - Context-free: does not depend on crawl history
func Canonicalize(sourceUrl url.URL) url.URL {
	// Create a copy to avoid mutating the original
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	host, port := canonical.Hostname(), canonical.Port()
	if strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
		canonical.Host = joinHostPort(host, port)
	}
	if port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = joinHostPort(host, "")
		}
	}

	canonical.Path = canonicalPath(canonical.Path)
	if canonical.RawPath != "" {
		canonical.RawPath = canonicalPath(canonical.RawPath)
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""
	canonical.ForceQuery = false

	return canonical
}

// IsDirectoryLike reports whether the last path segment carries no file extension.
func IsDirectoryLike(path string) bool {
	last := path[strings.LastIndex(path, "/")+1:]
	return !strings.Contains(last, ".")
}

func canonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = collapseSlashes(p)
	if !strings.HasSuffix(p, "/") && IsDirectoryLike(p) {
		p += "/"
	}
	return p
}

// collapseSlashes replaces every run of '/' with a single '/'.
func collapseSlashes(p string) string {
	if !strings.Contains(p, "//") {
		return p
	}
	var b strings.Builder
	b.Grow(len(p))
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

func joinHostPort(host, port string) string {
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port == "" {
		return host
	}
	return host + ":" + port
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
