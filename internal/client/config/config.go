package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProbeModeHTTP = "http"
	ProbeModeGRPC = "grpc"

	StorageDriverSQLite  = "sqlite"
	StorageDriverLevelDB = "leveldb"
)

// Config holds runtime settings for the offline client.
//
// Units: every interval and timeout is a time.Duration.
type Config struct {
	ServerBaseURL  string
	HealthPath     string
	ProbeMode      string
	GRPCHealthAddr string

	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration

	StorageDriver string
	StoragePath   string

	DefaultMaxRetries  int
	RetryInterval      time.Duration
	CacheSweepInterval time.Duration
	ReplayRPS          float64
	ReplayBurst        int

	MetricsAddr string

	LogBackend string
	LogLevel   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.HealthPath = "/health"
	c.ProbeMode = ProbeModeHTTP
	c.GRPCHealthAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.StorageDriver = StorageDriverSQLite
	c.StoragePath = "offline.db"
	c.DefaultMaxRetries = 3
	c.RetryInterval = 30 * time.Second
	c.CacheSweepInterval = 5 * time.Minute
	c.ReplayRPS = 10
	c.ReplayBurst = 5
	c.MetricsAddr = ""
	c.LogBackend = "slog"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays the config
// file, the environment and finally command-line flags. Parse failures of a
// file or a flag panic, as they indicate a broken invocation; semantic
// problems are reported by Validate.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.ServerBaseURL = strings.TrimRight(strings.TrimSpace(c.ServerBaseURL), "/")
	if c.HealthPath != "" && !strings.HasPrefix(c.HealthPath, "/") {
		c.HealthPath = "/" + c.HealthPath
	}
	c.ProbeMode = strings.ToLower(c.ProbeMode)
	c.StorageDriver = strings.ToLower(c.StorageDriver)
	c.LogBackend = strings.ToLower(c.LogBackend)
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.ServerBaseURL == "" {
		return errors.New("server base url must not be empty")
	}
	switch c.ProbeMode {
	case ProbeModeHTTP, ProbeModeGRPC:
	default:
		return fmt.Errorf("probe mode must be http or grpc, got %q", c.ProbeMode)
	}
	if c.ProbeMode == ProbeModeGRPC && c.GRPCHealthAddr == "" {
		return errors.New("grpc health address must be set for grpc probe mode")
	}
	if c.OnlineCheckInterval <= 0 || c.RequestTimeout <= 0 || c.RetryInterval <= 0 || c.CacheSweepInterval <= 0 {
		return errors.New("intervals and timeouts must be positive durations")
	}
	switch c.StorageDriver {
	case StorageDriverSQLite, StorageDriverLevelDB:
	default:
		return fmt.Errorf("storage driver must be sqlite or leveldb, got %q", c.StorageDriver)
	}
	if strings.TrimSpace(c.StoragePath) == "" {
		return errors.New("storage path must not be empty")
	}
	if c.DefaultMaxRetries < 1 {
		return errors.New("default max retries must be >= 1")
	}
	if c.ReplayRPS < 0 {
		return errors.New("replay rps must be >= 0")
	}
	if c.ReplayBurst < 1 {
		return errors.New("replay burst must be >= 1")
	}
	switch c.LogBackend {
	case "slog", "zerolog":
	default:
		return fmt.Errorf("log backend must be slog or zerolog, got %q", c.LogBackend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}
