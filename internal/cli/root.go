package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rohmanhakim/silent-crawler/internal/build"
	"github.com/rohmanhakim/silent-crawler/internal/config"
	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/internal/normalize"
	"github.com/rohmanhakim/silent-crawler/internal/scheduler"
	"github.com/rohmanhakim/silent-crawler/internal/storage"
)

// ErrInterrupted is returned after partial results of an interrupted crawl were reported.
var ErrInterrupted = errors.New("crawl interrupted")

var (
	cfgFile         string
	maxDepth        int
	waitSeconds     float64
	timeoutSeconds  float64
	userAgent       string
	outputPath      string
	ignoreRobots    bool
	concurrency     int
	maxPages        int
	maxAttempts     int
	randomSeed      int64
	includeNonHTML  bool
	includeExternal bool
	logLevel        string
	metricsAddr     string
)

// findConfigFile is replaced in tests to keep the user's XDG config out of reach.
var findConfigFile = config.FindConfigFile

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "silent-crawler <URL>",
	Short: "A polite, depth-bounded site crawler.",
	Long: `silent-crawler discovers the URLs, directory paths and subdomains of a
website by following its links up to a bounded depth.

Requests are paced with a fixed delay plus random jitter, robots.txt is
honoured unless told otherwise, and links leaving the target domain are
never fetched.`,
	Args:          cobra.MaximumNArgs(1),
	Version:       build.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError(cmd, args)
		if err != nil {
			return err
		}
		return RunCrawl(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config-file", "", "config file path (JSON or YAML); defaults to the XDG config directory")
	flags.IntVarP(&maxDepth, "depth", "d", 3, "maximum link depth from the seed URL")
	flags.Float64VarP(&waitSeconds, "wait", "w", 0.5, "seconds to wait before every request, random jitter is added on top")
	flags.Float64VarP(&timeoutSeconds, "timeout", "t", 10, "request timeout in seconds")
	flags.StringVarP(&userAgent, "user-agent", "u", config.DefaultUserAgent, "user agent string for HTTP requests")
	flags.StringVarP(&outputPath, "output", "o", "", "write results as JSON to this file instead of the console")
	flags.BoolVar(&ignoreRobots, "ignore-robots", false, "do not fetch or honour robots.txt")
	flags.IntVarP(&concurrency, "concurrency", "c", 10, "number of concurrent fetch workers")
	flags.IntVar(&maxPages, "max-pages", 0, "maximum number of URLs to admit (0 for unlimited)")
	flags.IntVar(&maxAttempts, "max-attempts", 1, "fetch attempts per URL")
	flags.Int64Var(&randomSeed, "random-seed", 0, "seed for the jitter generator (0 for current time)")
	flags.BoolVar(&includeNonHTML, "include-non-html", false, "record fetched URLs that are not HTML")
	flags.BoolVar(&includeExternal, "include-external", false, "record links leaving the target domain under \"external\"")
	flags.StringVar(&logLevel, "log-level", zerolog.WarnLevel.String(), "log level (trace, debug, info, warn, error)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the crawl")
}

// InitConfigWithError resolves the crawl configuration, returning any errors.
// Precedence, lowest first: defaults, the config file, flags set on the command line.
// The seed URL comes from args when given, otherwise from the config file.
func InitConfigWithError(cmd *cobra.Command, args []string) (config.Config, error) {
	configBuilder, err := loadConfigFile()
	if err != nil {
		return config.Config{}, err
	}

	if len(args) > 0 {
		seed, err := normalize.ParseSeed(args[0])
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: invalid URL %q: %s", config.ErrInvalidConfig, args[0], err.Error())
		}
		configBuilder = configBuilder.WithSeedURL(seed)
	} else if seed := configBuilder.SeedURL(); seed == (url.URL{}) {
		return config.Config{}, fmt.Errorf("%w: a seed URL is required", config.ErrInvalidConfig)
	}

	changed := cmd.Flags().Changed

	if changed("depth") {
		configBuilder = configBuilder.WithMaxDepth(maxDepth)
	}
	if changed("wait") {
		delay, err := config.SecondsFlag("wait", waitSeconds)
		if err != nil {
			return config.Config{}, err
		}
		configBuilder = configBuilder.WithBaseDelay(delay)
	}
	if changed("timeout") {
		timeout, err := config.SecondsFlag("timeout", timeoutSeconds)
		if err != nil {
			return config.Config{}, err
		}
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if changed("user-agent") {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if changed("output") {
		configBuilder = configBuilder.WithOutputPath(outputPath)
	}
	if changed("ignore-robots") {
		configBuilder = configBuilder.WithRespectRobots(!ignoreRobots)
	}
	if changed("concurrency") {
		configBuilder = configBuilder.WithConcurrency(concurrency)
	}
	if changed("max-pages") {
		configBuilder = configBuilder.WithMaxPages(maxPages)
	}
	if changed("max-attempts") {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempts)
	}
	if changed("random-seed") {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}
	if changed("include-non-html") {
		configBuilder = configBuilder.WithRecordNonHTML(includeNonHTML)
	}
	if changed("include-external") {
		configBuilder = configBuilder.WithRecordExternal(includeExternal)
	}
	if changed("log-level") {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: log-level: %s", config.ErrInvalidConfig, err.Error())
		}
		configBuilder = configBuilder.WithLogLevel(level)
	}
	if changed("metrics-addr") {
		configBuilder = configBuilder.WithMetricsAddr(metricsAddr)
	}

	return configBuilder.Build()
}

// loadConfigFile returns the builder seeded from --config-file, the XDG
// config file if one exists, or the defaults.
func loadConfigFile() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		found, ok := findConfigFile()
		if !ok {
			return config.WithDefault(url.URL{}), nil
		}
		path = found
	}
	configBuilder, err := config.WithConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("error initializing config from file: %w", err)
	}
	return configBuilder, nil
}

// RunCrawl crawls with cfg and reports the results.
// The summary goes to out, logs go to errOut.
func RunCrawl(ctx context.Context, cfg config.Config, out io.Writer, errOut io.Writer) error {
	logger := newLogger(errOut, cfg.LogLevel())
	metrics := metadata.NewMetrics()

	crawlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr() != "" {
		go func() {
			if err := metrics.Serve(crawlCtx, cfg.MetricsAddr()); err != nil {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr()).Msg("metrics endpoint stopped")
			}
		}()
	}

	recorder := metadata.NewRecorder(logger, metrics)

	seed := cfg.SeedURL()
	fmt.Fprintf(out, "Starting silent crawler on %s\n", seed.String())
	fmt.Fprintf(out, "Max depth: %d, Delay: %gs, Timeout: %gs, Concurrent requests: %d\n",
		cfg.MaxDepth(), cfg.BaseDelay().Seconds(), cfg.Timeout().Seconds(), cfg.Concurrency())
	fmt.Fprintf(out, "Respecting robots.txt: %t\n", cfg.RespectRobots())

	execution, err := scheduler.NewScheduler(cfg, recorder).Run(crawlCtx)
	if err != nil {
		return fmt.Errorf("crawl aborted: %w", err)
	}

	reporter := storage.NewConsoleReporter(out)
	reporter.Summary(execution.Results)

	if cfg.OutputPath() != "" {
		sink := storage.NewJSONFileSink(recorder, cfg.OutputPath())
		writeResult, err := sink.Write(execution.Results)
		if err != nil {
			// keep the results on the console when the file cannot hold them
			reporter.Details(execution.Results)
			return fmt.Errorf("failed to save results: %w", err)
		}
		reporter.Saved(writeResult)
	} else {
		reporter.Details(execution.Results)
	}

	if execution.Interrupted {
		fmt.Fprintf(out, "\nCrawl interrupted, %d admitted URLs were not visited\n", execution.Stats.Unvisited)
		return ErrInterrupted
	}
	return nil
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// ---------------------------------------------------------------------------
// Test Helper Methods
// ---------------------------------------------------------------------------

// ResetFlags restores every flag to its default and clears its changed state.
func ResetFlags() {
	rootCmd.Flags().VisitAll(func(flag *pflag.Flag) {
		_ = flag.Value.Set(flag.DefValue)
		flag.Changed = false
	})
	findConfigFile = config.FindConfigFile
}

// ParseFlagsForTest parses argv as the command line would and returns the positional args.
func ParseFlagsForTest(argv []string) ([]string, error) {
	if err := rootCmd.ParseFlags(argv); err != nil {
		return nil, err
	}
	return rootCmd.Flags().Args(), nil
}

// RootCommandForTest exposes the command whose flags ParseFlagsForTest populated.
func RootCommandForTest() *cobra.Command {
	return rootCmd
}

// SetConfigLookupForTest replaces the XDG config file lookup.
func SetConfigLookupForTest(lookup func() (string, bool)) {
	findConfigFile = lookup
}
