package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/offlinekit/internal/flagx"
	"github.com/dmitrijs2005/offlinekit/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for file decoding. Pointer fields let
// a partial file override only what it mentions.
type FileConfig struct {
	ServerBaseURL       *string         `json:"server_base_url" yaml:"server_base_url"`
	HealthPath          *string         `json:"health_path" yaml:"health_path"`
	ProbeMode           *string         `json:"probe_mode" yaml:"probe_mode"`
	GRPCHealthAddr      *string         `json:"grpc_health_addr" yaml:"grpc_health_addr"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	StorageDriver       *string         `json:"storage_driver" yaml:"storage_driver"`
	StoragePath         *string         `json:"storage_path" yaml:"storage_path"`
	DefaultMaxRetries   *int            `json:"default_max_retries" yaml:"default_max_retries"`
	RetryInterval       *timex.Duration `json:"retry_interval" yaml:"retry_interval"`
	CacheSweepInterval  *timex.Duration `json:"cache_sweep_interval" yaml:"cache_sweep_interval"`
	ReplayRPS           *float64        `json:"replay_rps" yaml:"replay_rps"`
	ReplayBurst         *int            `json:"replay_burst" yaml:"replay_burst"`
	MetricsAddr         *string         `json:"metrics_addr" yaml:"metrics_addr"`
	LogBackend          *string         `json:"log_backend" yaml:"log_backend"`
	LogLevel            *string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config, if any.
// It panics on read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerBaseURL, fc.ServerBaseURL)
	setString(&cfg.HealthPath, fc.HealthPath)
	setString(&cfg.ProbeMode, fc.ProbeMode)
	setString(&cfg.GRPCHealthAddr, fc.GRPCHealthAddr)
	setString(&cfg.StorageDriver, fc.StorageDriver)
	setString(&cfg.StoragePath, fc.StoragePath)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.LogBackend, fc.LogBackend)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.RetryInterval != nil {
		cfg.RetryInterval = fc.RetryInterval.Duration
	}
	if fc.CacheSweepInterval != nil {
		cfg.CacheSweepInterval = fc.CacheSweepInterval.Duration
	}
	if fc.DefaultMaxRetries != nil {
		cfg.DefaultMaxRetries = *fc.DefaultMaxRetries
	}
	if fc.ReplayRPS != nil {
		cfg.ReplayRPS = *fc.ReplayRPS
	}
	if fc.ReplayBurst != nil {
		cfg.ReplayBurst = *fc.ReplayBurst
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
