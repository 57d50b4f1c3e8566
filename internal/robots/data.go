package robots

import (
	"net/url"
	"strings"
	"time"
)

// Permission modeling

// pathRule is one Allow or Disallow pattern. '*' matches any sequence and a
// trailing '$' anchors the pattern at the end of the target.
type pathRule struct {
	pattern string
}

type ruleSet struct {
	host string

	// The user-agent these rules apply to (resolved, not raw)
	userAgent string

	allowRules    []pathRule
	disallowRules []pathRule

	// Optional crawl delay from robots.txt. Parsed, never applied.
	crawlDelay *time.Duration

	// Metadata / observability
	fetchedAt time.Time
	sourceURL string

	// matchedGroup is false when no group applies, not even the wildcard (*) one.
	matchedGroup bool

	// hasGroups is false when robots.txt had no groups (missing, unreachable or empty).
	hasGroups bool
}

type DecisionReason string

const (
	AllowedByRobots     DecisionReason = "allowed_by_robots"
	DisallowedByRobots  DecisionReason = "disallowed_by_robots"
	UserAgentNotMatched DecisionReason = "user_agent_not_matched"
	EmptyRuleSet        DecisionReason = "empty_rule_set"
	NoMatchingRules     DecisionReason = "no_matching_rules"
	RobotsDisabled      DecisionReason = "robots_disabled"
)

type Decision struct {
	Url url.URL

	Allowed bool

	// Why this decision was made (for logging/debugging)
	Reason DecisionReason

	// Optional delay override (robots crawl-delay)
	CrawlDelay *time.Duration
}

// matches reports whether the pattern matches target (path plus query).
func (p pathRule) matches(target string) bool {
	pattern := p.pattern
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(target, parts[0]) {
		return false
	}
	rest := target[len(parts[0]):]

	if len(parts) == 1 {
		return !anchored || rest == ""
	}

	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}

	last := parts[len(parts)-1]
	if anchored {
		return strings.HasSuffix(rest, last)
	}
	return strings.Contains(rest, last)
}

// evaluate applies longest-match precedence. Equal lengths favor Allow; no match allows.
func (r ruleSet) evaluate(target string) (bool, DecisionReason) {
	if !r.hasGroups {
		return true, EmptyRuleSet
	}
	if !r.matchedGroup {
		return true, UserAgentNotMatched
	}

	longest := -1
	allowed := true
	for _, rule := range r.disallowRules {
		if rule.matches(target) && len(rule.pattern) > longest {
			longest = len(rule.pattern)
			allowed = false
		}
	}
	for _, rule := range r.allowRules {
		if rule.matches(target) && len(rule.pattern) >= longest {
			longest = len(rule.pattern)
			allowed = true
		}
	}

	switch {
	case longest < 0:
		return true, NoMatchingRules
	case allowed:
		return true, AllowedByRobots
	default:
		return false, DisallowedByRobots
	}
}

// matchTarget is the part of u that robots rules are matched against.
func matchTarget(u url.URL) string {
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
