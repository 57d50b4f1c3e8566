package robots

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/internal/robots/cache"
	"golang.org/x/sync/singleflight"
)

/*
Responsibilities

- Fetch robots.txt once per scheme://host
- Cache rule sets for the crawl duration
- Answer allow/disallow for a URL

An unavailable robots.txt is recorded and treated as no restriction.
*/

type Robot struct {
	metadataSink metadata.MetadataSink
	fetcher      *RobotsFetcher
	cache        cache.Cache[ruleSet]
	inflight     singleflight.Group
	userAgent    string
	enabled      bool
}

// NewRobot creates a Robot backed by an in-memory rule set cache.
// When enabled is false every URL is allowed and robots.txt is never requested.
func NewRobot(
	metadataSink metadata.MetadataSink,
	robotsFetcher *RobotsFetcher,
	enabled bool,
) *Robot {
	return &Robot{
		metadataSink: metadataSink,
		fetcher:      robotsFetcher,
		cache:        cache.NewMemoryCache[ruleSet](),
		userAgent:    robotsFetcher.UserAgent(),
		enabled:      enabled,
	}
}

// IsAllowed reports whether the configured user agent may fetch u.
func (r *Robot) IsAllowed(ctx context.Context, u url.URL) bool {
	return r.Decide(ctx, u).Allowed
}

// Decide evaluates u against the robots.txt of its host, fetching it on first use.
func (r *Robot) Decide(ctx context.Context, u url.URL) Decision {
	if !r.enabled {
		return Decision{Url: u, Allowed: true, Reason: RobotsDisabled}
	}

	rs := r.ruleSetFor(ctx, u.Scheme, u.Host)
	allowed, reason := rs.evaluate(matchTarget(u))
	return Decision{
		Url:        u,
		Allowed:    allowed,
		Reason:     reason,
		CrawlDelay: rs.CrawlDelay(),
	}
}

func (r *Robot) ruleSetFor(ctx context.Context, scheme, host string) ruleSet {
	key := cacheKey(scheme, host)
	if rs, ok := r.cache.Get(key); ok {
		return rs
	}

	v, _, _ := r.inflight.Do(key, func() (any, error) {
		if rs, ok := r.cache.Get(key); ok {
			return rs, nil
		}

		result, err := r.fetcher.Fetch(ctx, scheme, host)
		if err != nil {
			r.recordError(scheme, host, err)
			rs := emptyRuleSet(host, r.userAgent, RobotsURL(scheme, host), time.Now())
			// a cancelled crawl must not pin an empty rule set
			if ctx.Err() == nil {
				r.cache.Put(key, rs)
			}
			return rs, nil
		}

		rs := MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt, result.SourceURL)
		r.cache.Put(key, rs)
		return rs, nil
	})
	return v.(ruleSet)
}

func (r *Robot) recordError(scheme, host string, err *RobotsError) {
	r.metadataSink.RecordError(
		time.Now(),
		"robots",
		"Robot.Decide",
		mapRobotsErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, RobotsURL(scheme, host)),
			metadata.NewAttr(metadata.AttrHost, host),
		},
	)
}

// cacheKey identifies a rule set by scheme and host (including any port).
func cacheKey(scheme, host string) string {
	return strings.ToLower(scheme) + "://" + strings.ToLower(host)
}
