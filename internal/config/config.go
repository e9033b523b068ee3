package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"
)

type Config struct {
	//===============
	// Serving
	//===============
	// Address the HTTP front-end binds to.
	listenAddress string
	// External base URL of this gateway, used when rewriting proxied
	// links (e.g. "https://portal.mozz.us"). Scheme and host only.
	proxyBase string
	// Minimum severity emitted by the logger.
	logLevel string

	//===============
	// Upstream fetch
	//===============
	// Maximum time to establish a connection (TCP dial + TLS handshake).
	connectTimeout time.Duration
	// Ceiling for fully-buffered response bodies. Larger bodies switch
	// to streaming.
	maxBodySize int
	// Charset assumed when neither the caller nor the response names one.
	defaultCharset string

	//===============
	// Politeness
	//===============
	// Minimum fixed waiting time between two requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// Maximum attempt during retry
	maxAttempt int
	// Initial delay for backoff
	backoffInitialDuration time.Duration
	// Multiplier during exponential backoff
	backoffMultiplier float64
	// Capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Policy
	//===============
	// Hosts that opted out of being proxied. Suffix match, subdomains
	// included.
	blockedHosts []string
	// Remote ports the gateway is willing to connect to.
	allowedPorts []int
}

type configDTO struct {
	ListenAddress          string        `json:"listenAddress,omitempty"`
	ProxyBase              string        `json:"proxyBase,omitempty"`
	LogLevel               string        `json:"logLevel,omitempty"`
	ConnectTimeout         time.Duration `json:"connectTimeout,omitempty"`
	MaxBodySize            int           `json:"maxBodySize,omitempty"`
	DefaultCharset         string        `json:"defaultCharset,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	BlockedHosts           []string      `json:"blockedHosts,omitempty"`
	AllowedPorts           []int         `json:"allowedPorts,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	// Start with default config
	cfg := WithDefault()

	if dto.ListenAddress != "" {
		cfg.listenAddress = dto.ListenAddress
	}
	if dto.ProxyBase != "" {
		cfg.proxyBase = dto.ProxyBase
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.ConnectTimeout != 0 {
		cfg.connectTimeout = dto.ConnectTimeout
	}
	if dto.MaxBodySize != 0 {
		cfg.maxBodySize = dto.MaxBodySize
	}
	if dto.DefaultCharset != "" {
		cfg.defaultCharset = dto.DefaultCharset
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	// An explicit empty list in the file clears the built-in defaults,
	// so nil-check rather than len-check.
	if dto.BlockedHosts != nil {
		cfg.blockedHosts = dto.BlockedHosts
	}
	if dto.AllowedPorts != nil {
		cfg.allowedPorts = dto.AllowedPorts
	}

	return cfg.Build()
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		listenAddress:  "127.0.0.1:8080",
		proxyBase:      "http://127.0.0.1:8080",
		logLevel:       "info",
		connectTimeout: 10 * time.Second,
		maxBodySize:    1 << 20,
		defaultCharset: "UTF-8",
		baseDelay:      0,
		jitter:         500 * time.Millisecond,
		randomSeed:     time.Now().UnixNano(),
		maxAttempt:     2,

		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,

		blockedHosts: []string{
			"vger.cloud",
			"warpengineer.space",
			"michaelnordmeyer.com",
		},
		allowedPorts: defaultAllowedPorts(),
	}
	return &defaultConfig
}

// defaultAllowedPorts admits every protocol's canonical port plus the
// unprivileged range commonly used by hobbyist servers.
func defaultAllowedPorts() []int {
	ports := []int{70, 79, 300, 1900, 1961, 1965, 5699}
	for p := 7000; p <= 7100; p++ {
		ports = append(ports, p)
	}
	return ports
}

func (c *Config) WithListenAddress(address string) *Config {
	c.listenAddress = address
	return c
}

func (c *Config) WithProxyBase(base string) *Config {
	c.proxyBase = base
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithConnectTimeout(timeout time.Duration) *Config {
	c.connectTimeout = timeout
	return c
}

func (c *Config) WithMaxBodySize(size int) *Config {
	c.maxBodySize = size
	return c
}

func (c *Config) WithDefaultCharset(charset string) *Config {
	c.defaultCharset = charset
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

func (c *Config) WithBlockedHosts(hosts []string) *Config {
	c.blockedHosts = hosts
	return c
}

func (c *Config) WithAllowedPorts(ports []int) *Config {
	c.allowedPorts = ports
	return c
}

func (c *Config) Build() (Config, error) {
	if c.listenAddress == "" {
		return Config{}, fmt.Errorf("%w: listenAddress cannot be empty", ErrInvalidConfig)
	}

	base, err := url.Parse(c.proxyBase)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return Config{}, fmt.Errorf("%w: proxyBase must be an absolute URL", ErrInvalidConfig)
	}
	if base.Path != "" && base.Path != "/" {
		return Config{}, fmt.Errorf("%w: proxyBase must not carry a path", ErrInvalidConfig)
	}

	if c.connectTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: connectTimeout must be positive", ErrInvalidConfig)
	}
	if c.maxBodySize <= 0 {
		return Config{}, fmt.Errorf("%w: maxBodySize must be positive", ErrInvalidConfig)
	}
	if len(c.allowedPorts) == 0 {
		return Config{}, fmt.Errorf("%w: allowedPorts cannot be empty", ErrInvalidConfig)
	}

	return *c, nil
}

func (c Config) ListenAddress() string {
	return c.listenAddress
}

func (c Config) ProxyBase() string {
	return c.proxyBase
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) ConnectTimeout() time.Duration {
	return c.connectTimeout
}

func (c Config) MaxBodySize() int {
	return c.maxBodySize
}

func (c Config) DefaultCharset() string {
	return c.defaultCharset
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

func (c Config) BlockedHosts() []string {
	hosts := make([]string, len(c.blockedHosts))
	copy(hosts, c.blockedHosts)
	return hosts
}

func (c Config) AllowedPorts() []int {
	ports := make([]int, len(c.allowedPorts))
	copy(ports, c.allowedPorts)
	return ports
}

// AllowedPortSet returns the allowed ports in the membership form the
// policy checker consumes.
func (c Config) AllowedPortSet() map[int]struct{} {
	set := make(map[int]struct{}, len(c.allowedPorts))
	for _, p := range c.allowedPorts {
		set[p] = struct{}{}
	}
	return set
}
