// Package config loads the xrbtree driver configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/benz9527/xrbtree/observability"
	"github.com/benz9527/xrbtree/xlog"
)

// Sentinel validation errors.
var (
	ErrInvalidVariant    = errors.New("tree variant must be iterative or recursive")
	ErrInvalidBorrow     = errors.New("tree borrow must be pred or succ")
	ErrInvalidAlloc      = errors.New("tree alloc must be heap, pool or arena")
	ErrInvalidNodeLimit  = errors.New("tree node limit must not be negative")
	ErrInvalidWorkers    = errors.New("soak workers must be positive")
	ErrInvalidRounds     = errors.New("soak rounds must be positive")
	ErrInvalidKeys       = errors.New("soak keys must be positive")
	ErrInvalidOps        = errors.New("soak ops must be positive")
	ErrInvalidCheckEvery = errors.New("soak check_every must not be negative")
	ErrInvalidLogFormat  = errors.New("logging format must be json or text")
	ErrInvalidLogOutput  = errors.New("logging output must be stdout or stderr")
	ErrInvalidListen     = errors.New("metrics listen must be host:port")
)

const (
	VariantIterative = "iterative"
	VariantRecursive = "recursive"

	BorrowPred = "pred"
	BorrowSucc = "succ"

	AllocHeap  = "heap"
	AllocPool  = "pool"
	AllocArena = "arena"
)

// Default configuration values.
const (
	DefaultArenaChunkCap   = 256
	DefaultSoakWorkers     = 4
	DefaultSoakRounds      = 16
	DefaultSoakKeys        = 4096
	DefaultSoakOps         = 20000
	DefaultSoakCheckEvery  = 1000
	DefaultMetricsListen   = "127.0.0.1:9464"
	DefaultMetricsInterval = 10 * time.Second
	envPrefix              = "XRBTREE"
)

var (
	DefaultDemoInserts = []int{12, 31, 24, 5, 12, 5, 34, 9, 2985, 324, 5, 69, 8}
	DefaultDemoErases  = []int{5, 0, 12, 2985, 69}
)

// Config holds all configuration for the xrbtree driver.
type Config struct {
	Tree    TreeConfig    `mapstructure:"tree"`
	Demo    DemoConfig    `mapstructure:"demo"`
	Soak    SoakConfig    `mapstructure:"soak"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// TreeConfig selects the tree variant and its options.
type TreeConfig struct {
	Variant       string `mapstructure:"variant"`
	Borrow        string `mapstructure:"borrow"`
	Alloc         string `mapstructure:"alloc"`
	ArenaChunkCap uint32 `mapstructure:"arena_chunk_cap"`
	NodeLimit     int64  `mapstructure:"node_limit"`
	Desc          bool   `mapstructure:"desc"`
	Sync          bool   `mapstructure:"sync"`
}

type DemoConfig struct {
	Inserts []int `mapstructure:"inserts"`
	Erases  []int `mapstructure:"erases"`
}

// SoakConfig drives the randomized workload. A zero seed picks a random one.
type SoakConfig struct {
	Workers    int    `mapstructure:"workers"`
	Rounds     int    `mapstructure:"rounds"`
	Keys       int    `mapstructure:"keys"`
	Ops        int    `mapstructure:"ops"`
	CheckEvery int    `mapstructure:"check_every"`
	Seed       uint64 `mapstructure:"seed"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Exporter string        `mapstructure:"exporter"`
	Listen   string        `mapstructure:"listen"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads the configuration from file and XRBTREE_ prefixed environment
// variables. An empty path searches ./xrbtree.yaml and ./config/xrbtree.yaml,
// a missing file there is not an error.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("xrbtree")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if readErr := viperCfg.ReadInConfig(); readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config
	if err := viperCfg.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(&config)
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	// Tree defaults.
	viperCfg.SetDefault("tree.variant", VariantIterative)
	viperCfg.SetDefault("tree.borrow", BorrowPred)
	viperCfg.SetDefault("tree.alloc", AllocHeap)
	viperCfg.SetDefault("tree.arena_chunk_cap", DefaultArenaChunkCap)
	viperCfg.SetDefault("tree.node_limit", 0)
	viperCfg.SetDefault("tree.desc", false)
	viperCfg.SetDefault("tree.sync", false)

	// Demo defaults.
	viperCfg.SetDefault("demo.inserts", DefaultDemoInserts)
	viperCfg.SetDefault("demo.erases", DefaultDemoErases)

	// Soak defaults.
	viperCfg.SetDefault("soak.workers", DefaultSoakWorkers)
	viperCfg.SetDefault("soak.rounds", DefaultSoakRounds)
	viperCfg.SetDefault("soak.keys", DefaultSoakKeys)
	viperCfg.SetDefault("soak.ops", DefaultSoakOps)
	viperCfg.SetDefault("soak.check_every", DefaultSoakCheckEvery)
	viperCfg.SetDefault("soak.seed", 0)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")
	viperCfg.SetDefault("logging.output", "stderr")

	// Metrics defaults.
	viperCfg.SetDefault("metrics.exporter", string(observability.NoneExporter))
	viperCfg.SetDefault("metrics.listen", DefaultMetricsListen)
	viperCfg.SetDefault("metrics.interval", DefaultMetricsInterval.String())
}

func normalize(config *Config) {
	lower := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	config.Tree.Variant = lower(config.Tree.Variant)
	config.Tree.Borrow = lower(config.Tree.Borrow)
	config.Tree.Alloc = lower(config.Tree.Alloc)
	config.Logging.Format = lower(config.Logging.Format)
	config.Logging.Output = lower(config.Logging.Output)
	config.Metrics.Exporter = lower(config.Metrics.Exporter)
}

func validateConfig(config *Config) error {
	switch config.Tree.Variant {
	case VariantIterative, VariantRecursive:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVariant, config.Tree.Variant)
	}
	switch config.Tree.Borrow {
	case BorrowPred, BorrowSucc:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBorrow, config.Tree.Borrow)
	}
	switch config.Tree.Alloc {
	case AllocHeap, AllocPool, AllocArena:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAlloc, config.Tree.Alloc)
	}
	if config.Tree.NodeLimit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNodeLimit, config.Tree.NodeLimit)
	}

	if config.Soak.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Soak.Workers)
	}
	if config.Soak.Rounds <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRounds, config.Soak.Rounds)
	}
	if config.Soak.Keys <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeys, config.Soak.Keys)
	}
	if config.Soak.Ops <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOps, config.Soak.Ops)
	}
	if config.Soak.CheckEvery < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCheckEvery, config.Soak.CheckEvery)
	}

	if _, ok := xlog.ParseLogEncoder(config.Logging.Format); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}
	switch config.Logging.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogOutput, config.Logging.Output)
	}

	kind, err := observability.ParseExporterKind(config.Metrics.Exporter)
	if err != nil {
		return err
	}
	if kind == observability.PrometheusExporter {
		if _, _, err := net.SplitHostPort(config.Metrics.Listen); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidListen, config.Metrics.Listen)
		}
	}
	return nil
}
