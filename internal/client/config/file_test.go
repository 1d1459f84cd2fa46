package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func Test_parseFile_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("json overlays only present fields", func(t *testing.T) {
		path := writeTempFile(t, "cfg.json", `{
			"server_base_url": "https://bills.example",
			"online_check_interval": "10s",
			"default_max_retries": 5
		}`)
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, "https://bills.example", cfg.ServerBaseURL)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 5, cfg.DefaultMaxRetries)
		assert.Equal(t, StorageDriverSQLite, cfg.StorageDriver)
	})

	t.Run("yaml by extension", func(t *testing.T) {
		path := writeTempFile(t, "cfg.yaml", "storage_driver: leveldb\nstorage_path: /tmp/offline\nretry_interval: 1m\nreplay_rps: 2.5\n")
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, StorageDriverLevelDB, cfg.StorageDriver)
		assert.Equal(t, "/tmp/offline", cfg.StoragePath)
		assert.Equal(t, time.Minute, cfg.RetryInterval)
		assert.InDelta(t, 2.5, cfg.ReplayRPS, 1e-9)
	})

	t.Run("no file flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{ServerBaseURL: "keep"}
		parseFile(cfg)
		assert.Equal(t, "keep", cfg.ServerBaseURL)
	})

	t.Run("invalid json panics", func(t *testing.T) {
		path := writeTempFile(t, "bad.json", `{ nope`)
		os.Args = []string{"testbin", "-c", path}

		require.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "absent.json")}

		require.Panics(t, func() { parseFile(&Config{}) })
	})
}
