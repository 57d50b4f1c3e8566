package robots

import (
	"net/url"
	"testing"
)

func TestPathRuleMatches(t *testing.T) {
	tests := []struct {
		pattern string
		target  string
		want    bool
	}{
		{"/private/", "/private/", true},
		{"/private/", "/private/data.html", true},
		{"/private/", "/privatedata", false},
		{"/private", "/private-data", true},
		{"/", "/anything", true},
		{"/*.pdf", "/docs/file.pdf", true},
		{"/*.pdf", "/docs/file.pdf?x=1", true},
		{"/*.pdf$", "/docs/file.pdf", true},
		{"/*.pdf$", "/docs/file.pdf?x=1", false},
		{"/a$", "/a", true},
		{"/a$", "/ab", false},
		{"/a/*/c", "/a/b/c", true},
		{"/a/*/c", "/a/c", false},
		{"/a/*/c", "/a/b/d/c/e", true},
		{"*", "/", true},
		{"/*?", "/search?q=1", true},
		{"/*?", "/search", false},
		{"/a*b*c$", "/axxbyybzc", true},
		{"/a*b*c$", "/axxbyybzcd", false},
	}

	for _, tt := range tests {
		got := pathRule{pattern: tt.pattern}.matches(tt.target)
		if got != tt.want {
			t.Errorf("pattern %q target %q: got %v, want %v", tt.pattern, tt.target, got, tt.want)
		}
	}
}

func TestRuleSetEvaluate(t *testing.T) {
	rs := ruleSet{
		hasGroups:    true,
		matchedGroup: true,
		allowRules:   []pathRule{{pattern: "/private/public/"}, {pattern: "/tie"}},
		disallowRules: []pathRule{
			{pattern: "/private/"},
			{pattern: "/tie"},
			{pattern: "/*.zip$"},
		},
	}

	tests := []struct {
		target      string
		wantAllowed bool
		wantReason  DecisionReason
	}{
		{"/", true, NoMatchingRules},
		{"/private/secret.html", false, DisallowedByRobots},
		{"/private/public/page.html", true, AllowedByRobots},
		{"/tie", true, AllowedByRobots},
		{"/files/archive.zip", false, DisallowedByRobots},
		{"/files/archive.zip.html", true, NoMatchingRules},
	}

	for _, tt := range tests {
		allowed, reason := rs.evaluate(tt.target)
		if allowed != tt.wantAllowed || reason != tt.wantReason {
			t.Errorf("target %q: got (%v, %s), want (%v, %s)", tt.target, allowed, reason, tt.wantAllowed, tt.wantReason)
		}
	}
}

func TestRuleSetEvaluate_EmptyAndUnmatched(t *testing.T) {
	if allowed, reason := (ruleSet{}).evaluate("/x"); !allowed || reason != EmptyRuleSet {
		t.Errorf("empty rule set: got (%v, %s)", allowed, reason)
	}
	if allowed, reason := (ruleSet{hasGroups: true}).evaluate("/x"); !allowed || reason != UserAgentNotMatched {
		t.Errorf("unmatched agent: got (%v, %s)", allowed, reason)
	}
}

func TestMatchTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com", "/"},
		{"https://example.com/a/b", "/a/b"},
		{"https://example.com/search?q=go", "/search?q=go"},
		{"https://example.com/a%20b/", "/a%20b/"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := matchTarget(*u); got != tt.want {
			t.Errorf("matchTarget(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
