package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL  = "https://mufate-g-sacco.onrender.com"
	DefaultConfigPath  = "configs/config.yaml"
	defaultAPITimeout  = 15 * time.Second
	defaultCatalogTTL  = 60 * time.Second
	defaultRateLimit   = 5
	defaultRateWindow  = time.Minute
	defaultServerAddr  = ":8080"
	defaultSandboxAddr = ":5050"
)

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// BehindProxy trusts X-Forwarded-For / X-Real-IP for the client
	// address. Only enable it when a reverse proxy sets those headers.
	BehindProxy    bool          `yaml:"behind_proxy"`
}

type CacheConfig struct {
	RedisAddr  string        `yaml:"redis_addr"`
	CatalogTTL time.Duration `yaml:"catalog_ttl"`
}

type SandboxConfig struct {
	Addr string `yaml:"addr"`
}

type TUIConfig struct {
	LogFile string `yaml:"log_file"`
}

// AppConfig is built once at startup and handed to every constructor.
type AppConfig struct {
	API     APIConfig     `yaml:"api"`
	Logging LogConfig     `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	TUI     TUIConfig     `yaml:"tui"`
}

func assignDefaultConfigValues(cfg *AppConfig) {
	cfg.API.BaseURL = GetEnvOrDefaultAsString("LOAN_API_BASE", orString(cfg.API.BaseURL, DefaultAPIBaseURL))
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	cfg.API.Timeout = GetEnvOrDefaultAsDuration("LOAN_API_TIMEOUT", orDuration(cfg.API.Timeout, defaultAPITimeout))

	cfg.Logging.Level = GetEnvOrDefaultAsString("LOGGING_LEVEL", orString(cfg.Logging.Level, "info"))

	cfg.Server.Addr = GetEnvOrDefaultAsString("SERVER_ADDR", orString(cfg.Server.Addr, defaultServerAddr))
	if cfg.Server.RateLimit <= 0 {
		cfg.Server.RateLimit = defaultRateLimit
	}
	cfg.Server.RateLimit = GetEnvOrDefaultAsInt("SERVER_RATE_LIMIT", cfg.Server.RateLimit)
	cfg.Server.RateWindow = GetEnvOrDefaultAsDuration("SERVER_RATE_WINDOW", orDuration(cfg.Server.RateWindow, defaultRateWindow))
	cfg.Server.BehindProxy = GetEnvOrDefaultAsBool("SERVER_BEHIND_PROXY", cfg.Server.BehindProxy)
	if origins := GetEnvOrDefaultAsString("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.Server.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
			}
		}
	}

	cfg.Cache.RedisAddr = GetEnvOrDefaultAsString("REDIS_ADDR", cfg.Cache.RedisAddr)
	if _, set := os.LookupEnv("CATALOG_CACHE_TTL"); !set && cfg.Cache.CatalogTTL == 0 {
		cfg.Cache.CatalogTTL = defaultCatalogTTL
	}
	cfg.Cache.CatalogTTL = GetEnvOrDefaultAsDuration("CATALOG_CACHE_TTL", cfg.Cache.CatalogTTL)

	cfg.Sandbox.Addr = GetEnvOrDefaultAsString("SANDBOX_ADDR", orString(cfg.Sandbox.Addr, defaultSandboxAddr))
	cfg.TUI.LogFile = GetEnvOrDefaultAsString("TUI_LOG_FILE", orString(cfg.TUI.LogFile, "loan-calculator.log"))
}

// LoadFromConfigFilePath parses the YAML file at configPath and applies
// defaults and environment overrides. A missing file yields the defaults.
func LoadFromConfigFilePath(configPath string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(configPath) // #nosec G304 -- operator-supplied path
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	assignDefaultConfigValues(&cfg)
	return &cfg, nil
}

// Load reads .env (if present) and then the config file named by CONFIG_PATH.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := GetEnvOrDefaultAsString("CONFIG_PATH", DefaultConfigPath)
	cfg, err := LoadFromConfigFilePath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	return cfg, nil
}

func GetEnvOrDefaultAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvOrDefaultAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvOrDefaultAsString returns the value of the given env variable or the default value if not set.
func GetEnvOrDefaultAsString(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func GetEnvOrDefaultAsDuration(key string, defaultVal time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultVal
	}
	return value
}

func orString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v == 0 {
		return fallback
	}
	return v
}
