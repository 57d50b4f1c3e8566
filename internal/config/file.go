package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rohmanhakim/silent-crawler/internal/normalize"
	"github.com/rohmanhakim/silent-crawler/pkg/fileutil"
	"github.com/rohmanhakim/silent-crawler/pkg/timeutil"
)

const AppName = "silent-crawler"

// configFileNames are looked up, in order, inside the XDG config directory.
var configFileNames = []string{"config.yaml", "config.yml", "config.json"}

// configDTO mirrors the config file. Durations are seconds; absent fields keep their defaults.
type configDTO struct {
	SeedURL                *string  `json:"seedUrl" yaml:"seedUrl"`
	MaxDepth               *int     `json:"maxDepth" yaml:"maxDepth"`
	MaxPages               *int     `json:"maxPages" yaml:"maxPages"`
	MaxBodyBytes           *int64   `json:"maxBodyBytes" yaml:"maxBodyBytes"`
	Concurrency            *int     `json:"concurrency" yaml:"concurrency"`
	Wait                   *float64 `json:"wait" yaml:"wait"`
	Jitter                 *float64 `json:"jitter" yaml:"jitter"`
	RandomSeed             *int64   `json:"randomSeed" yaml:"randomSeed"`
	IgnoreRobots           *bool    `json:"ignoreRobots" yaml:"ignoreRobots"`
	MaxAttempt             *int     `json:"maxAttempt" yaml:"maxAttempt"`
	BackoffInitialDuration *float64 `json:"backoffInitialDuration" yaml:"backoffInitialDuration"`
	BackoffMultiplier      *float64 `json:"backoffMultiplier" yaml:"backoffMultiplier"`
	BackoffMaxDuration     *float64 `json:"backoffMaxDuration" yaml:"backoffMaxDuration"`
	Timeout                *float64 `json:"timeout" yaml:"timeout"`
	UserAgent              *string  `json:"userAgent" yaml:"userAgent"`
	Output                 *string  `json:"output" yaml:"output"`
	IncludeNonHTML         *bool    `json:"includeNonHtml" yaml:"includeNonHtml"`
	IncludeExternal        *bool    `json:"includeExternal" yaml:"includeExternal"`
	LogLevel               *string  `json:"logLevel" yaml:"logLevel"`
	MetricsAddr            *string  `json:"metricsAddr" yaml:"metricsAddr"`
}

// WithConfigFile reads a JSON or YAML config file, chosen by extension, on top of the defaults.
// The returned builder still has to be built; callers may apply overrides first.
func WithConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	cfgDTO := configDTO{}
	switch strings.ToLower(fileutil.GetFileExtension(path)) {
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(configContent))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(&cfgDTO)
	case "yaml", "yml":
		decoder := yaml.NewDecoder(bytes.NewReader(configContent))
		decoder.KnownFields(true)
		err = decoder.Decode(&cfgDTO)
		if errors.Is(err, io.EOF) {
			// an empty YAML document keeps every default
			err = nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

func newConfigFromDTO(dto configDTO) (*Config, error) {
	cfg := WithDefault(url.URL{})

	if dto.SeedURL != nil {
		seed, err := normalize.ParseSeed(*dto.SeedURL)
		if err != nil {
			return nil, fmt.Errorf("%w: seedUrl: %s", ErrInvalidConfig, err.Error())
		}
		cfg.seedURL = seed
	}
	if dto.MaxDepth != nil {
		cfg.maxDepth = *dto.MaxDepth
	}
	if dto.MaxPages != nil {
		cfg.maxPages = *dto.MaxPages
	}
	if dto.MaxBodyBytes != nil {
		cfg.maxBodyBytes = *dto.MaxBodyBytes
	}
	if dto.Concurrency != nil {
		cfg.concurrency = *dto.Concurrency
	}
	if dto.Wait != nil {
		cfg.baseDelay = timeutil.SecondsToDuration(*dto.Wait)
	}
	if dto.Jitter != nil {
		cfg.jitter = timeutil.SecondsToDuration(*dto.Jitter)
	}
	if dto.RandomSeed != nil {
		cfg.randomSeed = *dto.RandomSeed
	}
	if dto.IgnoreRobots != nil {
		cfg.respectRobots = !*dto.IgnoreRobots
	}
	if dto.MaxAttempt != nil {
		cfg.maxAttempt = *dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != nil {
		cfg.backoffInitialDuration = timeutil.SecondsToDuration(*dto.BackoffInitialDuration)
	}
	if dto.BackoffMultiplier != nil {
		cfg.backoffMultiplier = *dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != nil {
		cfg.backoffMaxDuration = timeutil.SecondsToDuration(*dto.BackoffMaxDuration)
	}
	if dto.Timeout != nil {
		cfg.timeout = timeutil.SecondsToDuration(*dto.Timeout)
	}
	if dto.UserAgent != nil {
		cfg.userAgent = *dto.UserAgent
	}
	if dto.Output != nil {
		cfg.outputPath = *dto.Output
	}
	if dto.IncludeNonHTML != nil {
		cfg.recordNonHTML = *dto.IncludeNonHTML
	}
	if dto.IncludeExternal != nil {
		cfg.recordExternal = *dto.IncludeExternal
	}
	if dto.LogLevel != nil {
		level, err := zerolog.ParseLevel(*dto.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: logLevel: %s", ErrInvalidConfig, err.Error())
		}
		cfg.logLevel = level
	}
	if dto.MetricsAddr != nil {
		cfg.metricsAddr = *dto.MetricsAddr
	}

	return cfg, nil
}

// XDGConfigDir returns the XDG config directory for the crawler.
// On Linux: ~/.config/silent-crawler
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// FindConfigFile returns the first existing config file in XDGConfigDir.
func FindConfigFile() (string, bool) {
	return findConfigFileIn(XDGConfigDir())
}

func findConfigFileIn(dir string) (string, bool) {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// SecondsFlag converts a CLI seconds value to a duration, rejecting negatives.
func SecondsFlag(name string, seconds float64) (time.Duration, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidConfig, name, seconds)
	}
	return timeutil.SecondsToDuration(seconds), nil
}
