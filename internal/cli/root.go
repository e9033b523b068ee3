package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rohmanhakim/scroll-gateway/internal/build"
	"github.com/rohmanhakim/scroll-gateway/internal/config"
	"github.com/rohmanhakim/scroll-gateway/internal/gateway"
	"github.com/rohmanhakim/scroll-gateway/internal/handlers"
	"github.com/rohmanhakim/scroll-gateway/internal/metadata"
	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/policy"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/server"
	"github.com/rohmanhakim/scroll-gateway/internal/transport"
	"github.com/rohmanhakim/scroll-gateway/pkg/limiter"
	"github.com/rohmanhakim/scroll-gateway/pkg/retry"
	"github.com/rohmanhakim/scroll-gateway/pkg/timeutil"
)

var (
	cfgFile        string
	listenAddress  string
	proxyBaseURL   string
	logLevel       string
	connectTimeout time.Duration
	maxBodySize    int
	baseDelay      time.Duration
	jitter         time.Duration
	randomSeed     int64
	blockedHosts   []string
	allowedPorts   []int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scroll-gateway",
	Short: "An HTTP gateway into the small web.",
	Long: `scroll-gateway serves scroll://, gemini://, spartan://, gopher://,
finger://, nex:// and text:// content to ordinary web browsers. Documents
are transformed into HTML; everything else is streamed or offered as a
download.`,
	Version: build.FullVersion(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		log, err := newLogger(cfg.LogLevel())
		if err != nil {
			return err
		}

		srv, err := BuildServer(cfg, log)
		if err != nil {
			return err
		}
		return srv.Start(cfg.ListenAddress())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/gateway.json)")
	rootCmd.PersistentFlags().StringVar(&listenAddress, "listen-address", "", "address the HTTP server binds to")
	rootCmd.PersistentFlags().StringVar(&proxyBaseURL, "proxy-base", "", "external base URL of this gateway, used in rewritten links")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "minimum log severity (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&connectTimeout, "connect-timeout", 0, "timeout for dialing upstream servers")
	rootCmd.PersistentFlags().IntVar(&maxBodySize, "max-body-size", 0, "largest response body rendered in full, in bytes")
	rootCmd.PersistentFlags().DurationVar(&baseDelay, "base-delay", 0, "base delay between requests to the same host")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to base delay")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	rootCmd.PersistentFlags().StringArrayVar(&blockedHosts, "blocked-host", []string{}, "host that must not be proxied (can be repeated)")
	rootCmd.PersistentFlags().IntSliceVar(&allowedPorts, "allowed-port", []int{}, "remote port the gateway may connect to (can be repeated)")
}

// InitConfig reads in config file and flag values.
func InitConfig() config.Config {
	cfg, err := InitConfigWithError()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError reads in config file and flag values, returning any
// errors. This makes it easier to test error cases.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	// Start with default config and apply overrides using method chaining
	configBuilder := config.WithDefault()

	if listenAddress != "" {
		configBuilder = configBuilder.WithListenAddress(listenAddress)
	}
	if proxyBaseURL != "" {
		configBuilder = configBuilder.WithProxyBase(proxyBaseURL)
	}
	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}
	if connectTimeout > 0 {
		configBuilder = configBuilder.WithConnectTimeout(connectTimeout)
	}
	if maxBodySize > 0 {
		configBuilder = configBuilder.WithMaxBodySize(maxBodySize)
	}
	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}
	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}
	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}
	if len(blockedHosts) > 0 {
		configBuilder = configBuilder.WithBlockedHosts(blockedHosts)
	}
	if len(allowedPorts) > 0 {
		configBuilder = configBuilder.WithAllowedPorts(allowedPorts)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// BuildServer assembles the full proxy stack from a built config.
func BuildServer(cfg config.Config, log zerolog.Logger) (server.Server, error) {
	checker, err := policy.NewChecker(cfg.BlockedHosts(), cfg.AllowedPortSet())
	if err != nil {
		return server.Server{}, fmt.Errorf("invalid blocked-host list: %w", err)
	}

	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(cfg.BaseDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())

	retryParam := retry.NewRetryParam(
		0,
		0,
		1,
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(
			cfg.BackoffInitialDuration(),
			cfg.BackoffMultiplier(),
			cfg.BackoffMaxDuration(),
		),
	)

	recorder := metadata.NewRecorder(log)
	client := protocols.NewClient(
		transport.NewDialer(cfg.ConnectTimeout(), log),
		checker,
		rateLimiter,
		retryParam,
		&recorder,
		log,
		cfg.MaxBodySize(),
		cfg.DefaultCharset(),
	)

	renderer, err := pages.NewRenderer(cfg.ProxyBase(), log)
	if err != nil {
		return server.Server{}, fmt.Errorf("failed to load page templates: %w", err)
	}
	registry := handlers.NewRegistry(&renderer, log)
	service := gateway.NewService(&client, registry, &renderer, log)

	return server.New(&service, &renderer, log), nil
}

func newLogger(level string) (zerolog.Logger, error) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("unknown log level %q", level)
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger(), nil
}

func ResetFlags() {
	cfgFile = ""
	listenAddress = ""
	proxyBaseURL = ""
	logLevel = ""
	connectTimeout = 0
	maxBodySize = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	blockedHosts = []string{}
	allowedPorts = []int{}
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetListenAddressForTest(address string) {
	listenAddress = address
}

func SetProxyBaseForTest(base string) {
	proxyBaseURL = base
}

func SetLogLevelForTest(level string) {
	logLevel = level
}

func SetConnectTimeoutForTest(timeout time.Duration) {
	connectTimeout = timeout
}

func SetMaxBodySizeForTest(size int) {
	maxBodySize = size
}

func SetBaseDelayForTest(delay time.Duration) {
	baseDelay = delay
}

func SetJitterForTest(j time.Duration) {
	jitter = j
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}

func SetBlockedHostsForTest(hosts []string) {
	blockedHosts = hosts
}

func SetAllowedPortsForTest(ports []int) {
	allowedPorts = ports
}
