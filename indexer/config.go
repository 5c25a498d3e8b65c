package indexer

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config configures the indexer daemon: where its bbolt store lives,
// which node RPC endpoint it fetches blocks from, how many blocks it
// prefetches in parallel and from which height it starts, its reorg
// depth, its log level, and its HTTP and metrics listen addresses
// (component O). Fields accept both a
// YAML config file and RUBIN_INDEXER_-prefixed environment overrides,
// following IndexerConfig's layering in the rest of the pack.
type Config struct {
	DataDir      string `yaml:"dataDir" envconfig:"DATA_DIR"`
	NodeRPCAddr  string `yaml:"nodeRpcAddr" envconfig:"NODE_RPC_ADDR"`
	ListenAddr   string `yaml:"listenAddr" envconfig:"LISTEN_ADDR"`
	LogLevel     string `yaml:"logLevel" envconfig:"LOG_LEVEL"`
	MetricsAddr  string `yaml:"metricsAddr" envconfig:"METRICS_ADDR"`
	ReorgDepth   uint32 `yaml:"reorgDepth" envconfig:"REORG_DEPTH"`
	FetchWorkers int    `yaml:"fetchWorkers" envconfig:"FETCH_WORKERS"`
	StartHeight  uint64 `yaml:"startHeight" envconfig:"START_HEIGHT"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// DefaultDataDir mirrors node.DefaultDataDir's fallback-to-dotfile
// convention, scoped to this daemon's own directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".boneindexd"
	}
	return filepath.Join(home, ".boneindexd")
}

// DefaultConfig returns the daemon's out-of-the-box settings.
func DefaultConfig() Config {
	return Config{
		DataDir:      DefaultDataDir(),
		NodeRPCAddr:  "127.0.0.1:19111",
		ListenAddr:   "127.0.0.1:8080",
		LogLevel:     "info",
		MetricsAddr:  "127.0.0.1:9090",
		ReorgDepth:   100,
		FetchWorkers: 12,
		StartHeight:  0,
	}
}

// LoadConfig reads an optional YAML file over the defaults, then lets
// RUBIN_INDEXER_-prefixed environment variables override the result,
// following the rest of the pack's file-then-env layering.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("indexer: read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("indexer: parse config file: %w", err)
		}
	}
	if err := envconfig.Process("rubin_indexer", &cfg); err != nil {
		return Config{}, fmt.Errorf("indexer: process environment: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig enforces the daemon's startup invariants, mirroring
// node.ValidateConfig's structure (required strings, valid addresses,
// bounded numeric ranges) for this daemon's own fields.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("indexer: dataDir is required")
	}
	if strings.TrimSpace(cfg.NodeRPCAddr) == "" {
		return errors.New("indexer: nodeRpcAddr is required")
	}
	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("indexer: invalid listenAddr: %w", err)
	}
	if err := validateAddr(cfg.MetricsAddr); err != nil {
		return fmt.Errorf("indexer: invalid metricsAddr: %w", err)
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("indexer: invalid logLevel %q", cfg.LogLevel)
	}
	if cfg.FetchWorkers <= 0 || cfg.FetchWorkers > 256 {
		return errors.New("indexer: fetchWorkers must be in (0, 256]")
	}
	if cfg.ReorgDepth == 0 {
		return errors.New("indexer: reorgDepth must be > 0")
	}
	return nil
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	_, _, err := net.SplitHostPort(addr)
	return err
}
