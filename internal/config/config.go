package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/rohmanhakim/silent-crawler/pkg/urlutil"
)

const (
	// DefaultUserAgent is a desktop browser agent so the crawl blends in with regular traffic.
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultMaxBodyBytes = 10 << 20
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Page the crawl starts from. Its host is the root domain of the crawl.
	seedURL url.URL

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from the seed URL
	maxDepth int
	// Maximum number of admitted URLs; zero means unlimited
	maxPages int
	// Maximum response body size read per page
	maxBodyBytes int64

	//===============
	// Politeness
	//===============
	// Maximum number of crawl worker goroutines processing URLs concurrently;
	// it does not control OS threads or CPU parallelism.
	concurrency int
	// Fixed waiting time before every request a worker makes.
	baseDelay time.Duration
	// Upper bound of the uniform random delay added on top of the base delay.
	jitter time.Duration
	// Seed of the jitter random number generator; zero seeds from the clock
	randomSeed int64
	// Whether robots.txt is fetched and obeyed
	respectRobots bool
	// maximum attempt per fetch; 1 disables retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Output
	//===============
	// JSON result path; empty prints the report to the console
	outputPath string
	// Record successfully fetched non-HTML resources as URLs
	recordNonHTML bool
	// Record links that leave the root domain under "external"
	recordExternal bool

	//===============
	// Observability
	//===============
	logLevel zerolog.Level
	// Listen address of the Prometheus endpoint; empty disables it
	metricsAddr string
}

// WithDefault creates a new Config with the provided seed URL and default values for all other fields.
func WithDefault(seedURL url.URL) *Config {
	defaultConfig := Config{
		seedURL:                seedURL,
		maxDepth:               3,
		maxPages:               0,
		maxBodyBytes:           DefaultMaxBodyBytes,
		concurrency:            10,
		baseDelay:              500 * time.Millisecond,
		jitter:                 500 * time.Millisecond,
		randomSeed:             0,
		respectRobots:          true,
		maxAttempt:             1,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		timeout:                10 * time.Second,
		userAgent:              DefaultUserAgent,
		outputPath:             "",
		recordNonHTML:          false,
		recordExternal:         false,
		logLevel:               zerolog.WarnLevel,
		metricsAddr:            "",
	}
	return &defaultConfig
}

func (c *Config) WithSeedURL(seedURL url.URL) *Config {
	c.seedURL = seedURL
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxPages(pages int) *Config {
	c.maxPages = pages
	return c
}

func (c *Config) WithMaxBodyBytes(size int64) *Config {
	c.maxBodyBytes = size
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithRespectRobots(respect bool) *Config {
	c.respectRobots = respect
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithOutputPath(outputPath string) *Config {
	c.outputPath = outputPath
	return c
}

func (c *Config) WithRecordNonHTML(record bool) *Config {
	c.recordNonHTML = record
	return c
}

func (c *Config) WithRecordExternal(record bool) *Config {
	c.recordExternal = record
	return c
}

func (c *Config) WithLogLevel(level zerolog.Level) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithMetricsAddr(addr string) *Config {
	c.metricsAddr = addr
	return c
}

// Build validates every field and returns the immutable config.
// The seed URL is stored in canonical form.
func (c *Config) Build() (Config, error) {
	if c.seedURL.Scheme != "http" && c.seedURL.Scheme != "https" {
		return Config{}, fmt.Errorf("%w: seedUrl must be an http or https URL, got %q", ErrInvalidConfig, c.seedURL.String())
	}
	if c.seedURL.Hostname() == "" {
		return Config{}, fmt.Errorf("%w: seedUrl has no host: %q", ErrInvalidConfig, c.seedURL.String())
	}
	if c.maxDepth < 0 {
		return Config{}, fmt.Errorf("%w: maxDepth must be >= 0, got %d", ErrInvalidConfig, c.maxDepth)
	}
	if c.maxPages < 0 {
		return Config{}, fmt.Errorf("%w: maxPages must be >= 0, got %d", ErrInvalidConfig, c.maxPages)
	}
	if c.maxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("%w: maxBodyBytes must be > 0, got %d", ErrInvalidConfig, c.maxBodyBytes)
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be >= 1, got %d", ErrInvalidConfig, c.concurrency)
	}
	if c.baseDelay < 0 {
		return Config{}, fmt.Errorf("%w: wait must be >= 0, got %v", ErrInvalidConfig, c.baseDelay)
	}
	if c.jitter < 0 {
		return Config{}, fmt.Errorf("%w: jitter must be >= 0, got %v", ErrInvalidConfig, c.jitter)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be > 0, got %v", ErrInvalidConfig, c.timeout)
	}
	if c.userAgent == "" {
		return Config{}, fmt.Errorf("%w: userAgent cannot be empty", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be >= 1, got %d", ErrInvalidConfig, c.maxAttempt)
	}
	if c.backoffInitialDuration < 0 {
		return Config{}, fmt.Errorf("%w: backoffInitialDuration must be >= 0, got %v", ErrInvalidConfig, c.backoffInitialDuration)
	}
	if c.backoffMultiplier < 1 {
		return Config{}, fmt.Errorf("%w: backoffMultiplier must be >= 1, got %v", ErrInvalidConfig, c.backoffMultiplier)
	}
	if c.backoffMaxDuration < c.backoffInitialDuration {
		return Config{}, fmt.Errorf("%w: backoffMaxDuration must be >= backoffInitialDuration", ErrInvalidConfig)
	}

	built := *c
	built.seedURL = urlutil.Canonicalize(c.seedURL)
	return built, nil
}

func (c Config) SeedURL() url.URL {
	return c.seedURL
}

func (c Config) MaxDepth() int {
	return c.maxDepth
}

func (c Config) MaxPages() int {
	return c.maxPages
}

func (c Config) MaxBodyBytes() int64 {
	return c.maxBodyBytes
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) RespectRobots() bool {
	return c.respectRobots
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) OutputPath() string {
	return c.outputPath
}

func (c Config) RecordNonHTML() bool {
	return c.recordNonHTML
}

func (c Config) RecordExternal() bool {
	return c.recordExternal
}

func (c Config) LogLevel() zerolog.Level {
	return c.logLevel
}

func (c Config) MetricsAddr() string {
	return c.metricsAddr
}
