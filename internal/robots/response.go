package robots

import (
	"strings"
	"time"
)

// RobotsResponse represents the parsed content of a robots.txt file.
// This struct is used for parsing the fetch response and should not be
// used directly for decision making - instead, map it to ruleSet.
type RobotsResponse struct {
	// The host this robots.txt applies to
	Host string

	// List of sitemap URLs found in the robots.txt
	Sitemaps []string

	// User agent groups, each containing rules for specific user agents
	UserAgents []UserAgentGroup
}

// UserAgentGroup represents a set of rules for one or more user agents.
type UserAgentGroup struct {
	// List of user agent strings this group applies to
	UserAgents []string

	// Allow rules (paths that may be crawled)
	Allows []PathRule

	// Disallow rules (paths that may not be crawled)
	Disallows []PathRule

	// Optional crawl delay
	CrawlDelay *time.Duration
}

// PathRule represents a single allow or disallow rule.
type PathRule struct {
	// The path pattern (may include wildcards * and $)
	Path string
}

// IsEmpty returns true if the response contains no rules or sitemaps.
func (r RobotsResponse) IsEmpty() bool {
	if len(r.Sitemaps) > 0 {
		return false
	}
	for _, group := range r.UserAgents {
		if len(group.Allows) > 0 || len(group.Disallows) > 0 {
			return false
		}
	}
	return true
}

// GroupsForUserAgent returns the groups that apply to userAgent.
//
// A group applies when one of its user-agent lines equals the full user agent,
// case-insensitively. When no group names the agent, the wildcard (*) groups apply.
// Returns nil when neither exists.
func (r RobotsResponse) GroupsForUserAgent(userAgent string) []UserAgentGroup {
	full := strings.ToLower(strings.TrimSpace(userAgent))

	var specific, wildcard []UserAgentGroup
	for _, group := range r.UserAgents {
		named, star := false, false
		for _, ua := range group.UserAgents {
			ua = strings.ToLower(strings.TrimSpace(ua))
			switch {
			case ua == "*":
				star = true
			case ua != "" && ua == full:
				named = true
			}
		}
		if named {
			specific = append(specific, group)
		} else if star {
			wildcard = append(wildcard, group)
		}
	}

	if len(specific) > 0 {
		return specific
	}
	return wildcard
}
