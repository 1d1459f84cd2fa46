// Package config loads runtime configuration for the offline client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are decoded with yaml.v3, anything else as JSON.
//  3. Optional dotenv file (-env path, else ./.env when present) and the
//     process environment, using the OFFLINEKIT_ prefix.
//  4. Command-line flags, which override everything above.
//
// Supported flags
//
//	-a   string  base URL of the remote API
//	-hp  string  health check path probed by the http prober
//	-pm  string  probe mode: http | grpc
//	-ga  string  host:port of a gRPC health service (probe mode grpc)
//	-i   int     online status check interval (seconds)
//	-t   int     per-request timeout (seconds)
//	-s   string  storage driver: sqlite | leveldb
//	-p   string  storage path
//	-r   int     default max retries for queued actions
//	-ri  int     periodic retry interval (seconds)
//	-ci  int     cache sweep interval (seconds)
//	-rps float   replay requests per second during a drain pass
//	-burst int   replay burst
//	-m   string  metrics listen address, empty disables
//	-lb  string  log backend: slog | zerolog
//	-ll  string  log level: debug | info | warn | error
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "server_base_url": "https://api.example.com",
//	  "online_check_interval": "3s",
//	  "storage_driver": "sqlite",
//	  "default_max_retries": 3
//	}
package config
