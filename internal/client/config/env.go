package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "OFFLINEKIT_"

// parseEnv loads a dotenv file (from -env, else ./.env when it exists) into
// the process environment without overriding variables already set, then
// overlays cfg with OFFLINEKIT_* variables. Unparseable values are ignored.
func parseEnv(cfg *Config) {
	path := flagx.EnvFileFlag()
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	cfg.ServerBaseURL = getenv("SERVER_BASE_URL", cfg.ServerBaseURL)
	cfg.HealthPath = getenv("HEALTH_PATH", cfg.HealthPath)
	cfg.ProbeMode = getenv("PROBE_MODE", cfg.ProbeMode)
	cfg.GRPCHealthAddr = getenv("GRPC_HEALTH_ADDR", cfg.GRPCHealthAddr)
	cfg.OnlineCheckInterval = getdur("ONLINE_CHECK_INTERVAL", cfg.OnlineCheckInterval)
	cfg.RequestTimeout = getdur("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.StorageDriver = getenv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.StoragePath = getenv("STORAGE_PATH", cfg.StoragePath)
	cfg.DefaultMaxRetries = getint("DEFAULT_MAX_RETRIES", cfg.DefaultMaxRetries)
	cfg.RetryInterval = getdur("RETRY_INTERVAL", cfg.RetryInterval)
	cfg.CacheSweepInterval = getdur("CACHE_SWEEP_INTERVAL", cfg.CacheSweepInterval)
	cfg.ReplayRPS = getfloat("REPLAY_RPS", cfg.ReplayRPS)
	cfg.ReplayBurst = getint("REPLAY_BURST", cfg.ReplayBurst)
	cfg.MetricsAddr = getenv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogBackend = getenv("LOG_BACKEND", cfg.LogBackend)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(envPrefix + k); ok && v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(envPrefix + k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(envPrefix + k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(envPrefix + k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
