package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collector/internal/config"
)

func TestLoad(t *testing.T) {
	t.Setenv("COLLECTOR_ADDR", ":9999")
	t.Setenv("COLLECTOR_DB_PATH", "/tmp/collector/collector.db")
	t.Setenv("COLLECTOR_LOG_LEVEL", "DEBUG")
	t.Setenv("COLLECTOR_RATE_LIMIT", "5")
	t.Setenv("COLLECTOR_RATE_WINDOW", "2m")
	t.Setenv("COLLECTOR_MAIL_SCOPES", "mail.send, mail.read")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "/tmp/collector/collector.db", cfg.DBPath)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 5, cfg.RateLimit.Limit)
	require.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	require.Equal(t, []string{"mail.send", "mail.read"}, cfg.Mail.Scopes)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COLLECTOR_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Contains(t, cfg.DBPath, "collector.db")
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, 3, cfg.RateLimit.Limit)
	require.Equal(t, 60*time.Second, cfg.RateLimit.Window)
	require.Equal(t, "memory", cfg.RateLimit.Backend)
	require.Equal(t, "https://api.ipify.org?format=json", cfg.IPLookup.URL)
	require.True(t, cfg.Mail.Confirmation)
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":7000"
  site_name: "${TEST_SITE}"
rate_limit:
  limit: 10
  backend: redis
mail:
  confirmation: false
timezone: Europe/Paris
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TEST_SITE", "Launch List")
	t.Setenv("COLLECTOR_CONFIG", path)
	t.Setenv("COLLECTOR_ADDR", ":7100")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":7100", cfg.Addr)
	require.Equal(t, "Launch List", cfg.SiteName)
	require.Equal(t, 10, cfg.RateLimit.Limit)
	require.Equal(t, "redis", cfg.RateLimit.Backend)
	require.False(t, cfg.Mail.Confirmation)
	require.Equal(t, "Europe/Paris", cfg.Location().String())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("COLLECTOR_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("COLLECTOR_RATE_BACKEND", "etcd")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_TrustedProxies(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Empty(t, cfg.TrustedProxies)

	t.Setenv("COLLECTOR_TRUSTED_PROXIES", "10.0.0.0/8, 2001:db8::/32")
	cfg, err = config.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.0/8", "2001:db8::/32"}, cfg.TrustedProxies)

	t.Setenv("COLLECTOR_TRUSTED_PROXIES", "10.0.0.1")
	_, err = config.Load()
	require.Error(t, err)
}
