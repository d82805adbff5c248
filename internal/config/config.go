// Package config loads service configuration from an optional YAML file and
// COLLECTOR_* environment variables. Environment values win over the file.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const envPrefix = "COLLECTOR_"

type Config struct {
	Addr          string
	StaticDir     string
	BaseURL       string
	SiteName      string
	EnableSwagger bool
	CookieSecure  bool

	// CIDRs of reverse proxies whose X-Forwarded-For is trusted.
	TrustedProxies []string

	DBPath      string
	PostgresURL string

	RateLimit   RateLimitConfig
	HTTPLimiter HTTPLimiterConfig
	IPLookup    IPLookupConfig
	Mail        MailConfig
	Network     NetworkConfig

	WebhookURL string
	Timezone   string

	LogLevel  string
	LogFormat string
}

type RateLimitConfig struct {
	Limit    int
	Window   time.Duration
	Backend  string // memory | redis
	RedisURL string
}

type HTTPLimiterConfig struct {
	RPS   float64
	Burst int
}

type IPLookupConfig struct {
	URL     string
	Timeout time.Duration
}

type MailConfig struct {
	ProviderURL      string
	From             string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	Scopes           []string
	DispatchInterval time.Duration
	Confirmation     bool
}

type NetworkConfig struct {
	ProxyURL string
	IPStack  string
}

// fileConfig mirrors the YAML layout.
type fileConfig struct {
	Server struct {
		Addr           string   `yaml:"addr"`
		StaticDir      string   `yaml:"static_dir"`
		BaseURL        string   `yaml:"base_url"`
		SiteName       string   `yaml:"site_name"`
		EnableSwagger  *bool    `yaml:"swagger"`
		CookieSecure   *bool    `yaml:"cookie_secure"`
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`
	Storage struct {
		DBPath      string `yaml:"db_path"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"storage"`
	RateLimit struct {
		Limit    int    `yaml:"limit"`
		Window   string `yaml:"window"`
		Backend  string `yaml:"backend"`
		RedisURL string `yaml:"redis_url"`
	} `yaml:"rate_limit"`
	HTTPLimiter struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"http_limiter"`
	IPLookup struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"ip_lookup"`
	Mail struct {
		ProviderURL      string   `yaml:"provider_url"`
		From             string   `yaml:"from"`
		TokenURL         string   `yaml:"token_url"`
		ClientID         string   `yaml:"client_id"`
		ClientSecret     string   `yaml:"client_secret"`
		Scopes           []string `yaml:"scopes"`
		DispatchInterval string   `yaml:"dispatch_interval"`
		Confirmation     *bool    `yaml:"confirmation"`
	} `yaml:"mail"`
	Network struct {
		ProxyURL string `yaml:"proxy_url"`
		IPStack  string `yaml:"ip_stack"`
	} `yaml:"network"`
	WebhookURL string `yaml:"webhook_url"`
	Timezone   string `yaml:"timezone"`
	Log        struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads the optional YAML file named by COLLECTOR_CONFIG (with ${VAR}
// expansion) and then applies environment overrides.
func Load() (Config, error) {
	var file fileConfig
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
			return Config{}, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	cfg := Config{
		Addr:          env("ADDR", firstNonEmpty(file.Server.Addr, ":8080")),
		BaseURL:       strings.TrimRight(env("BASE_URL", firstNonEmpty(file.Server.BaseURL, "http://localhost:8080")), "/"),
		SiteName:      env("SITE_NAME", firstNonEmpty(file.Server.SiteName, "Email Collector")),
		EnableSwagger: envBool("SWAGGER", boolOr(file.Server.EnableSwagger, false)),
		CookieSecure:  envBool("COOKIE_SECURE", boolOr(file.Server.CookieSecure, false)),

		TrustedProxies: envList("TRUSTED_PROXIES", file.Server.TrustedProxies),

		DBPath:      filepath.Clean(env("DB_PATH", firstNonEmpty(file.Storage.DBPath, "./data/collector.db"))),
		PostgresURL: env("POSTGRES_URL", file.Storage.PostgresURL),

		RateLimit: RateLimitConfig{
			Limit:    envInt("RATE_LIMIT", intOr(file.RateLimit.Limit, 3)),
			Window:   envDuration("RATE_WINDOW", durationOr(file.RateLimit.Window, 60*time.Second)),
			Backend:  strings.ToLower(env("RATE_BACKEND", firstNonEmpty(file.RateLimit.Backend, "memory"))),
			RedisURL: env("REDIS_URL", firstNonEmpty(file.RateLimit.RedisURL, "redis://localhost:6379/0")),
		},
		HTTPLimiter: HTTPLimiterConfig{
			RPS:   envFloat("HTTP_RPS", floatOr(file.HTTPLimiter.RPS, 10)),
			Burst: envInt("HTTP_BURST", intOr(file.HTTPLimiter.Burst, 20)),
		},
		IPLookup: IPLookupConfig{
			URL:     env("IP_LOOKUP_URL", firstNonEmpty(file.IPLookup.URL, "https://api.ipify.org?format=json")),
			Timeout: envDuration("IP_LOOKUP_TIMEOUT", durationOr(file.IPLookup.Timeout, 2*time.Second)),
		},
		Mail: MailConfig{
			ProviderURL:      env("MAIL_PROVIDER_URL", file.Mail.ProviderURL),
			From:             env("MAIL_FROM", firstNonEmpty(file.Mail.From, "noreply@localhost")),
			TokenURL:         env("MAIL_TOKEN_URL", file.Mail.TokenURL),
			ClientID:         env("MAIL_CLIENT_ID", file.Mail.ClientID),
			ClientSecret:     env("MAIL_CLIENT_SECRET", file.Mail.ClientSecret),
			Scopes:           envList("MAIL_SCOPES", file.Mail.Scopes),
			DispatchInterval: envDuration("MAIL_DISPATCH_INTERVAL", durationOr(file.Mail.DispatchInterval, 30*time.Second)),
			Confirmation:     envBool("MAIL_CONFIRMATION", boolOr(file.Mail.Confirmation, true)),
		},
		Network: NetworkConfig{
			ProxyURL: env("PROXY_URL", file.Network.ProxyURL),
			IPStack:  env("IP_STACK", firstNonEmpty(file.Network.IPStack, "default")),
		},

		WebhookURL: env("WEBHOOK_URL", file.WebhookURL),
		Timezone:   env("TIMEZONE", firstNonEmpty(file.Timezone, "UTC")),

		LogLevel:  strings.ToLower(env("LOG_LEVEL", firstNonEmpty(file.Log.Level, "info"))),
		LogFormat: strings.ToLower(env("LOG_FORMAT", firstNonEmpty(file.Log.Format, "text"))),
	}

	staticDir := env("STATIC_DIR", file.Server.StaticDir)
	if staticDir == "" {
		staticDir = detectStaticDir()
	}
	cfg.StaticDir = filepath.Clean(staticDir)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) validate() error {
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.Limit)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate window must be positive, got %s", c.RateLimit.Window)
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func detectStaticDir() string {
	candidates := []string{
		"./frontend/dist",
		"../frontend/dist",
	}
	for _, candidate := range candidates {
		indexPath := filepath.Join(candidate, "index.html")
		if info, err := os.Stat(indexPath); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return "./frontend/dist"
}

func env(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intOr(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func floatOr(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func durationOr(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}
