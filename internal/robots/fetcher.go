package robots

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/silent-crawler/internal/fetcher"
	"github.com/rohmanhakim/silent-crawler/pkg/retry"
)

/*
RobotsFetcher

Responsibilities:
- Fetch robots.txt per host through the crawl transport
- Parse robots.txt content into structured format
- Translate transport failures into robots semantics

The fetcher returns a parsed RobotsResponse that can be mapped to ruleSet.
It does not make decisions about URL permissions and does not cache.
*/

// maxRobotsSize caps the robots.txt content that is parsed.
const maxRobotsSize = 500 * 1024

// robotsCrawlDepth marks robots.txt requests in fetch events; they are not part of the traversal.
const robotsCrawlDepth = -1

// RobotsFetcher fetches and parses robots.txt files from hosts.
type RobotsFetcher struct {
	transport  fetcher.Fetcher
	userAgent  string
	timeout    time.Duration
	retryParam retry.RetryParam
}

// RobotsFetchResult represents the result of fetching a robots.txt file.
type RobotsFetchResult struct {
	Response    RobotsResponse
	FetchedAt   time.Time
	SourceURL   string
	HTTPStatus  int
	ContentType string
}

// NewRobotsFetcher creates a RobotsFetcher that requests robots.txt through transport
// with the crawl's user agent and per-request timeout.
func NewRobotsFetcher(
	transport fetcher.Fetcher,
	userAgent string,
	timeout time.Duration,
	retryParam retry.RetryParam,
) *RobotsFetcher {
	return &RobotsFetcher{
		transport:  transport,
		userAgent:  userAgent,
		timeout:    timeout,
		retryParam: retryParam,
	}
}

// RobotsURL returns the robots.txt location for scheme and host.
func RobotsURL(scheme, hostname string) string {
	return fmt.Sprintf("%s://%s/robots.txt", scheme, hostname)
}

// Fetch retrieves the robots.txt file from the given host.
// The hostname should be in the form "example.com" or "example.com:8080".
//
// A 4xx response other than 429 means the host publishes no robots.txt and yields an
// empty response without error. Network failures, 429 and 5xx yield a RobotsError.
func (f *RobotsFetcher) Fetch(ctx context.Context, scheme, hostname string) (RobotsFetchResult, *RobotsError) {
	robotsURL := RobotsURL(scheme, hostname)
	target, err := url.Parse(robotsURL)
	if err != nil {
		return RobotsFetchResult{}, &RobotsError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCausePreFetchFailure,
		}
	}

	start := time.Now()
	fetchParam := fetcher.NewFetchParam(*target, f.userAgent, f.timeout)
	result, fetchErr := f.transport.Fetch(ctx, robotsCrawlDepth, fetchParam, f.retryParam)
	if fetchErr != nil {
		var transportErr *fetcher.FetchError
		if !errors.As(fetchErr, &transportErr) {
			return RobotsFetchResult{}, &RobotsError{
				Message:   fmt.Sprintf("failed to fetch %s: %v", robotsURL, fetchErr),
				Retryable: true,
				Cause:     ErrCauseHttpFetchFailure,
			}
		}
		return f.handleTransportError(transportErr, hostname, robotsURL, start)
	}

	content := result.Body()
	if len(content) > maxRobotsSize {
		content = content[:maxRobotsSize]
	}

	return RobotsFetchResult{
		Response:    ParseRobotsTxt(string(content), hostname),
		FetchedAt:   time.Now(),
		SourceURL:   robotsURL,
		HTTPStatus:  result.Code(),
		ContentType: result.ContentType(),
	}, nil
}

func (f *RobotsFetcher) handleTransportError(
	err *fetcher.FetchError,
	hostname string,
	robotsURL string,
	start time.Time,
) (RobotsFetchResult, *RobotsError) {
	switch {
	case err.StatusCode == 429:
		return RobotsFetchResult{}, &RobotsError{
			Message:   fmt.Sprintf("rate limited (429) when fetching %s", robotsURL),
			Retryable: true,
			Cause:     ErrCauseHttpTooManyRequests,
		}

	case err.StatusCode >= 400 && err.StatusCode < 500:
		// no robots.txt, no restrictions
		return RobotsFetchResult{
			Response: RobotsResponse{
				Host:       hostname,
				Sitemaps:   []string{},
				UserAgents: []UserAgentGroup{},
			},
			FetchedAt:  start,
			SourceURL:  robotsURL,
			HTTPStatus: err.StatusCode,
		}, nil

	case err.StatusCode >= 500:
		return RobotsFetchResult{}, &RobotsError{
			Message:   fmt.Sprintf("server error (%d) when fetching %s", err.StatusCode, robotsURL),
			Retryable: true,
			Cause:     ErrCauseHttpServerError,
		}

	case err.StatusCode != 0:
		return RobotsFetchResult{}, &RobotsError{
			Message:   fmt.Sprintf("unexpected status code %d for %s", err.StatusCode, robotsURL),
			Retryable: false,
			Cause:     ErrCauseHttpUnexpectedStatus,
		}

	default:
		return RobotsFetchResult{}, &RobotsError{
			Message:   fmt.Sprintf("failed to fetch robots.txt: %v", err),
			Retryable: err.Retryable,
			Cause:     ErrCauseHttpFetchFailure,
		}
	}
}

// ParseRobotsTxt parses robots.txt content into a structured format.
// Content beyond 500 KiB is ignored.
func ParseRobotsTxt(content, hostname string) RobotsResponse {
	if len(content) > maxRobotsSize {
		content = content[:maxRobotsSize]
	}

	response := RobotsResponse{
		Host:       hostname,
		Sitemaps:   []string{},
		UserAgents: []UserAgentGroup{},
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxRobotsSize)

	var currentGroup *UserAgentGroup
	var globalGroup UserAgentGroup // rules that appear before any user-agent line
	hasGlobalGroup := false

	for scanner.Scan() {
		line := scanner.Text()

		if idx := strings.Index(line, "#"); idx != -1 {
			line = line[:idx]
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "user-agent":
			if currentGroup == nil {
				currentGroup = newGroup(value)
			} else if len(currentGroup.Allows) == 0 && len(currentGroup.Disallows) == 0 && currentGroup.CrawlDelay == nil {
				// consecutive user-agent lines share the rules that follow
				currentGroup.UserAgents = append(currentGroup.UserAgents, value)
			} else {
				response.UserAgents = append(response.UserAgents, *currentGroup)
				currentGroup = newGroup(value)
			}

		case "allow":
			if currentGroup != nil {
				currentGroup.Allows = append(currentGroup.Allows, PathRule{Path: value})
			} else {
				globalGroup.Allows = append(globalGroup.Allows, PathRule{Path: value})
				hasGlobalGroup = true
			}

		case "disallow":
			if currentGroup != nil {
				currentGroup.Disallows = append(currentGroup.Disallows, PathRule{Path: value})
			} else {
				globalGroup.Disallows = append(globalGroup.Disallows, PathRule{Path: value})
				hasGlobalGroup = true
			}

		case "crawl-delay":
			if currentGroup != nil {
				if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds >= 0 {
					delay := time.Duration(seconds * float64(time.Second))
					currentGroup.CrawlDelay = &delay
				}
			}

		case "sitemap":
			if value != "" {
				response.Sitemaps = append(response.Sitemaps, value)
			}
		}
	}

	if currentGroup != nil {
		response.UserAgents = append(response.UserAgents, *currentGroup)
	}

	if hasGlobalGroup && (len(globalGroup.Allows) > 0 || len(globalGroup.Disallows) > 0) {
		globalGroup.UserAgents = []string{"*"}
		response.UserAgents = append([]UserAgentGroup{globalGroup}, response.UserAgents...)
	}

	return response
}

func newGroup(userAgent string) *UserAgentGroup {
	return &UserAgentGroup{
		UserAgents: []string{userAgent},
		Allows:     []PathRule{},
		Disallows:  []PathRule{},
	}
}

func (f *RobotsFetcher) UserAgent() string {
	return f.userAgent
}

func (f *RobotsFetcher) Timeout() time.Duration {
	return f.timeout
}
