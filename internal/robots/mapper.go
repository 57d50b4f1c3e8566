package robots

import (
	"strings"
	"time"
)

// MapResponseToRuleSet converts a RobotsResponse to an immutable ruleSet.
// All groups that apply to targetUserAgent are merged into one rule set.
func MapResponseToRuleSet(response RobotsResponse, targetUserAgent string, fetchedAt time.Time, sourceURL string) ruleSet {
	rs := ruleSet{
		host:      response.Host,
		userAgent: targetUserAgent,
		fetchedAt: fetchedAt,
		sourceURL: sourceURL,
		hasGroups: len(response.UserAgents) > 0,
	}

	groups := response.GroupsForUserAgent(targetUserAgent)
	if len(groups) == 0 {
		return rs
	}
	rs.matchedGroup = true

	for _, group := range groups {
		for _, allow := range group.Allows {
			if allow.Path != "" {
				rs.allowRules = append(rs.allowRules, pathRule{pattern: normalizePattern(allow.Path)})
			}
		}
		// an empty Disallow allows everything
		for _, disallow := range group.Disallows {
			if disallow.Path != "" {
				rs.disallowRules = append(rs.disallowRules, pathRule{pattern: normalizePattern(disallow.Path)})
			}
		}
		if group.CrawlDelay != nil && rs.crawlDelay == nil {
			delay := *group.CrawlDelay
			rs.crawlDelay = &delay
		}
	}

	return rs
}

// emptyRuleSet imposes no restriction. Used when robots.txt is unavailable.
func emptyRuleSet(host, userAgent, sourceURL string, fetchedAt time.Time) ruleSet {
	return ruleSet{
		host:      host,
		userAgent: userAgent,
		fetchedAt: fetchedAt,
		sourceURL: sourceURL,
	}
}

// normalizePattern ensures the pattern starts with "/" unless it starts with a wildcard.
func normalizePattern(pattern string) string {
	if strings.HasPrefix(pattern, "/") || strings.HasPrefix(pattern, "*") {
		return pattern
	}
	return "/" + pattern
}

// ruleSet getters for immutability

// Host returns the host this ruleSet applies to.
func (r ruleSet) Host() string {
	return r.host
}

// UserAgent returns the user agent string these rules apply to.
func (r ruleSet) UserAgent() string {
	return r.userAgent
}

// FetchedAt returns when this ruleSet was fetched.
func (r ruleSet) FetchedAt() time.Time {
	return r.fetchedAt
}

// SourceURL returns the URL of the robots.txt file.
func (r ruleSet) SourceURL() string {
	return r.sourceURL
}

// CrawlDelay returns the crawl delay if specified, or nil.
func (r ruleSet) CrawlDelay() *time.Duration {
	if r.crawlDelay == nil {
		return nil
	}
	delay := *r.crawlDelay
	return &delay
}

// AllowRules returns a copy of the allow rules.
func (r ruleSet) AllowRules() []pathRule {
	result := make([]pathRule, len(r.allowRules))
	copy(result, r.allowRules)
	return result
}

// DisallowRules returns a copy of the disallow rules.
func (r ruleSet) DisallowRules() []pathRule {
	result := make([]pathRule, len(r.disallowRules))
	copy(result, r.disallowRules)
	return result
}

// Pattern returns the raw pattern of this rule.
func (p pathRule) Pattern() string {
	return p.pattern
}
