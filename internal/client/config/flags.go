package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/flagx"
)

var knownFlags = []string{
	"-a", "-hp", "-pm", "-ga", "-i", "-t", "-s", "-p", "-r", "-ri", "-ci",
	"-rps", "-burst", "-m", "-lb", "-ll",
}

// parseFlags populates Config fields from command-line flags. Interval flags
// are whole seconds. os.Args is filtered with flagx.FilterArgs first so that
// flags owned by other components do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL of the remote API")
	fs.StringVar(&cfg.HealthPath, "hp", cfg.HealthPath, "health check path")
	fs.StringVar(&cfg.ProbeMode, "pm", cfg.ProbeMode, "probe mode (http|grpc)")
	fs.StringVar(&cfg.GRPCHealthAddr, "ga", cfg.GRPCHealthAddr, "gRPC health service address")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.StorageDriver, "s", cfg.StorageDriver, "storage driver (sqlite|leveldb)")
	fs.StringVar(&cfg.StoragePath, "p", cfg.StoragePath, "storage path")
	fs.IntVar(&cfg.DefaultMaxRetries, "r", cfg.DefaultMaxRetries, "default max retries")
	retryInterval := fs.Int("ri", int(cfg.RetryInterval.Seconds()), "retry interval (in seconds)")
	sweepInterval := fs.Int("ci", int(cfg.CacheSweepInterval.Seconds()), "cache sweep interval (in seconds)")
	fs.Float64Var(&cfg.ReplayRPS, "rps", cfg.ReplayRPS, "replay requests per second")
	fs.IntVar(&cfg.ReplayBurst, "burst", cfg.ReplayBurst, "replay burst")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")
	fs.StringVar(&cfg.LogBackend, "lb", cfg.LogBackend, "log backend (slog|zerolog)")
	fs.StringVar(&cfg.LogLevel, "ll", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		case "t":
			cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
		case "ri":
			cfg.RetryInterval = time.Duration(*retryInterval) * time.Second
		case "ci":
			cfg.CacheSweepInterval = time.Duration(*sweepInterval) * time.Second
		}
	})
}
