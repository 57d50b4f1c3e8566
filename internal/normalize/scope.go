package normalize

import (
	"net/url"
	"strings"
)

type Classification int

const (
	InScope Classification = iota
	Subdomain
	External
)

func (c Classification) String() string {
	switch c {
	case InScope:
		return "in_scope"
	case Subdomain:
		return "subdomain"
	default:
		return "external"
	}
}

// Scope is derived once from the seed URL and never changes during a crawl.
type Scope struct {
	rootDomain string
}

func NewScope(seed url.URL) Scope {
	return Scope{rootDomain: hostnameOf(seed)}
}

func (s Scope) RootDomain() string {
	return s.rootDomain
}

// Classify compares the hostname of u against the root domain.
// Ports are ignored and comparison is case-insensitive.
func (s Scope) Classify(u url.URL) Classification {
	host := hostnameOf(u)
	switch {
	case host == s.rootDomain:
		return InScope
	case s.rootDomain != "" && strings.HasSuffix(host, "."+s.rootDomain):
		return Subdomain
	default:
		return External
	}
}

func hostnameOf(u url.URL) string {
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}
