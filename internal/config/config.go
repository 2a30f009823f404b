package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StorageBackendFile     = "file"
	StorageBackendRedis    = "redis"
	StorageBackendPostgres = "postgres"

	IDSchemeTimestamp = "timestamp"
	IDSchemeUUID      = "uuid"

	DefaultStorageKey = "fitcrm_clients"
	DefaultCatalogURL = "https://wger.de/api/v2/exercise/"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// AllowedOrigins are the CORS origins allowed to call the service, besides same-origin requests.
	AllowedOrigins []string `toml:"allowed_origins"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// storage
	StorageBackend string `toml:"storage_backend"`
	StorageDir     string `toml:"storage_dir"`
	StorageKey     string `toml:"storage_key"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// clients
	IDScheme    string `toml:"id_scheme"`
	SeedOnStart bool   `toml:"seed_on_start"`
	// exercises catalog
	CatalogURL                 string        `toml:"catalog_url"`
	CatalogTimeout             time.Duration `toml:"catalog_timeout"`
	CatalogCacheTTL            time.Duration `toml:"catalog_cache_ttl"`
	SuggestionsCount           int           `toml:"suggestions_count"`
	SuggestionsRateLimitPerMin int           `toml:"suggestions_rate_limit_per_min"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] not set", env)
	}
	return cfg, nil
}

// Load reads the TOML file and returns the config for the given environment,
// with defaults applied and values validated.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{
			fmt.Sprintf("http://%s:%d", c.Host, c.Port),
			fmt.Sprintf("http://localhost:%d", c.Port),
		}
	}
	if c.StorageBackend == "" {
		c.StorageBackend = StorageBackendFile
	}
	if c.StorageDir == "" {
		c.StorageDir = "./data"
	}
	if c.StorageKey == "" {
		c.StorageKey = DefaultStorageKey
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.IDScheme == "" {
		c.IDScheme = IDSchemeTimestamp
	}
	if c.CatalogURL == "" {
		c.CatalogURL = DefaultCatalogURL
	}
	if c.CatalogTimeout == 0 {
		c.CatalogTimeout = 10 * time.Second
	}
	if c.CatalogCacheTTL == 0 {
		c.CatalogCacheTTL = time.Hour
	}
	if c.SuggestionsCount == 0 {
		c.SuggestionsCount = 5
	}
	if c.SuggestionsRateLimitPerMin == 0 {
		c.SuggestionsRateLimitPerMin = 30
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageBackendFile:
	case StorageBackendRedis:
		if c.RedisHost == "" {
			return errors.New("redis storage backend requires redis_host")
		}
	case StorageBackendPostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			return errors.New("postgres storage backend requires postgres_host and postgres_db_name")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}

	switch c.IDScheme {
	case IDSchemeTimestamp, IDSchemeUUID:
	default:
		return fmt.Errorf("unknown id scheme: %s", c.IDScheme)
	}

	if c.SuggestionsCount < 1 || c.SuggestionsCount > 50 {
		return errors.New("suggestions_count must be between 1 and 50")
	}

	return nil
}
