package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/releva-ai/releva-go/pkg/log"
	"gopkg.in/yaml.v3"
)

// InitialSyncPolicy decides whether the first cart or wishlist set on a
// client triggers an automatic push
type InitialSyncPolicy string

const (
	// SuppressInitialSync records the first cart/wishlist without pushing it
	SuppressInitialSync InitialSyncPolicy = "suppress"
	// SendInitialSync pushes on every genuine change, the first one included
	SendInitialSync InitialSyncPolicy = "send"
)

// CheckoutPolicy decides what the tracked cart holds after a successful checkout push
type CheckoutPolicy string

const (
	// ClearCartAfterCheckout resets the cart to an empty active cart after the push
	ClearCartAfterCheckout CheckoutPolicy = "clear"
	// KeepPaidCart leaves the paid cart tracked until the host sets a new one
	KeepPaidCart CheckoutPolicy = "keep"
)

// StoreDriver selects the persistent store backend
type StoreDriver string

const (
	StoreBolt   StoreDriver = "bolt"
	StoreSQLite StoreDriver = "sqlite"
	StoreMemory StoreDriver = "memory"
)

// Defaults
const (
	DefaultRequestTimeout  = 30 * time.Second
	DefaultFlushInterval   = 30 * time.Second
	DefaultSessionDuration = 24 * time.Hour
)

var realmPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Config holds client settings. Fields are read from a YAML file and then
// overridden by RELEVA_* environment variables.
type Config struct {
	Realm       string `yaml:"realm" env:"RELEVA_REALM"`
	AccessToken string `yaml:"accessToken" env:"RELEVA_ACCESS_TOKEN"`

	// Endpoint replaces the realm-derived backend URL (tests, proxies)
	Endpoint string `yaml:"endpoint" env:"RELEVA_ENDPOINT"`

	// FeaturePreset names one of the presets in features.go. It is applied
	// before the individual feature settings, which still override it.
	FeaturePreset string   `yaml:"preset" env:"RELEVA_FEATURES"`
	Features      Features `yaml:"features"`

	RequestTimeout  time.Duration `yaml:"requestTimeout" env:"RELEVA_REQUEST_TIMEOUT"`
	FlushInterval   time.Duration `yaml:"flushInterval" env:"RELEVA_FLUSH_INTERVAL"`
	SessionDuration time.Duration `yaml:"sessionDuration" env:"RELEVA_SESSION_DURATION"`

	InitialSync InitialSyncPolicy `yaml:"initialSync" env:"RELEVA_INITIAL_SYNC"`
	Checkout    CheckoutPolicy    `yaml:"checkout" env:"RELEVA_CHECKOUT"`

	DataDir     string      `yaml:"dataDir" env:"RELEVA_DATA_DIR"`
	StoreDriver StoreDriver `yaml:"storeDriver" env:"RELEVA_STORE_DRIVER"`

	// ConnectivityProbe is a host:port dialed before each engagement flush.
	// Empty means the network is assumed available.
	ConnectivityProbe string `yaml:"connectivityProbe" env:"RELEVA_CONNECTIVITY_PROBE"`

	Log LogConfig `yaml:"log"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level log.Level `yaml:"level" env:"RELEVA_LOG_LEVEL"`
	JSON  bool      `yaml:"json" env:"RELEVA_LOG_JSON"`
}

// Default returns a configuration with every feature enabled and the default timings
func Default() *Config {
	return &Config{
		Features:        Full(),
		RequestTimeout:  DefaultRequestTimeout,
		FlushInterval:   DefaultFlushInterval,
		SessionDuration: DefaultSessionDuration,
		InitialSync:     SuppressInitialSync,
		Checkout:        ClearCartAfterCheckout,
		StoreDriver:     StoreBolt,
		DataDir:         ".releva",
		Log: LogConfig{
			Level: log.InfoLevel,
		},
	}
}

// Load reads the YAML file at path (if any) over the defaults, applies
// environment overrides and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()

	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := cfg.apply(data); err != nil {
		return nil, err
	}
	if features, ok := Preset(cfg.FeaturePreset); ok {
		cfg.Features = features
		if err := cfg.apply(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply decodes the YAML document and then the environment over c. Only keys
// present in either source are written.
func (c *Config) apply(data []byte) error {
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration for missing or invalid values
func (c *Config) Validate() error {
	var errs []error

	if c.AccessToken == "" {
		errs = append(errs, errors.New("access token is required"))
	}
	if c.Realm != "" && !realmPattern.MatchString(c.Realm) {
		errs = append(errs, fmt.Errorf("invalid realm %q", c.Realm))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.FlushInterval <= 0 {
		errs = append(errs, errors.New("flush interval must be positive"))
	}
	if c.SessionDuration <= 0 {
		errs = append(errs, errors.New("session duration must be positive"))
	}

	if c.FeaturePreset != "" {
		if _, ok := Preset(c.FeaturePreset); !ok {
			errs = append(errs, fmt.Errorf("unknown feature preset %q", c.FeaturePreset))
		}
	}

	switch c.InitialSync {
	case SuppressInitialSync, SendInitialSync:
	default:
		errs = append(errs, fmt.Errorf("unknown initial sync policy %q", c.InitialSync))
	}

	switch c.Checkout {
	case ClearCartAfterCheckout, KeepPaidCart:
	default:
		errs = append(errs, fmt.Errorf("unknown checkout policy %q", c.Checkout))
	}

	switch c.StoreDriver {
	case StoreBolt, StoreSQLite:
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("data dir is required for the %s store", c.StoreDriver))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
