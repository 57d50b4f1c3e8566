package robots_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/silent-crawler/internal/robots"
)

func TestMapResponseToRuleSet(t *testing.T) {
	delay := 2 * time.Second
	fetchedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	response := robots.RobotsResponse{
		Host: "example.com",
		UserAgents: []robots.UserAgentGroup{
			{
				UserAgents: []string{"*"},
				Allows:     []robots.PathRule{{Path: "/public/"}, {Path: ""}},
				Disallows:  []robots.PathRule{{Path: "private/"}, {Path: ""}, {Path: "*.pdf$"}},
				CrawlDelay: &delay,
			},
		},
	}

	rs := robots.MapResponseToRuleSet(response, testUserAgent, fetchedAt, "https://example.com/robots.txt")

	assert.Equal(t, "example.com", rs.Host())
	assert.Equal(t, testUserAgent, rs.UserAgent())
	assert.Equal(t, fetchedAt, rs.FetchedAt())
	assert.Equal(t, "https://example.com/robots.txt", rs.SourceURL())
	require.NotNil(t, rs.CrawlDelay())
	assert.Equal(t, delay, *rs.CrawlDelay())

	var allows, disallows []string
	for _, r := range rs.AllowRules() {
		allows = append(allows, r.Pattern())
	}
	for _, r := range rs.DisallowRules() {
		disallows = append(disallows, r.Pattern())
	}
	assert.Equal(t, []string{"/public/"}, allows)
	assert.Equal(t, []string{"/private/", "*.pdf$"}, disallows)
}

func TestMapResponseToRuleSet_MergesMatchingGroups(t *testing.T) {
	response := robots.ParseRobotsTxt(`User-agent: testbot
Disallow: /a/

User-agent: *
Disallow: /ignored/

User-agent: TESTBOT
Disallow: /b/
`, "example.com")

	rs := robots.MapResponseToRuleSet(response, testUserAgent, time.Now(), "")

	var disallows []string
	for _, r := range rs.DisallowRules() {
		disallows = append(disallows, r.Pattern())
	}
	assert.Equal(t, []string{"/a/", "/b/"}, disallows)
}

func TestMapResponseToRuleSet_NoMatchingGroup(t *testing.T) {
	response := robots.ParseRobotsTxt("User-agent: OtherBot\nDisallow: /\n", "example.com")

	rs := robots.MapResponseToRuleSet(response, testUserAgent, time.Now(), "")

	assert.Empty(t, rs.AllowRules())
	assert.Empty(t, rs.DisallowRules())
	assert.Nil(t, rs.CrawlDelay())
}

func TestRuleSetImmutability(t *testing.T) {
	delay := time.Second
	response := robots.RobotsResponse{
		Host: "example.com",
		UserAgents: []robots.UserAgentGroup{
			{UserAgents: []string{"*"}, Disallows: []robots.PathRule{{Path: "/a"}}, CrawlDelay: &delay},
		},
	}
	other := robots.RobotsResponse{
		Host: "example.com",
		UserAgents: []robots.UserAgentGroup{
			{UserAgents: []string{"*"}, Disallows: []robots.PathRule{{Path: "/b"}}},
		},
	}
	rs := robots.MapResponseToRuleSet(response, testUserAgent, time.Now(), "")
	otherRules := robots.MapResponseToRuleSet(other, testUserAgent, time.Now(), "").DisallowRules()

	rules := rs.DisallowRules()
	rules[0] = otherRules[0]
	*rs.CrawlDelay() = time.Hour

	assert.Equal(t, "/a", rs.DisallowRules()[0].Pattern())
	assert.Equal(t, time.Second, *rs.CrawlDelay())
}
