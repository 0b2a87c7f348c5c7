package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Store    StoreConfig    `mapstructure:"store"`
	Matching MatchingConfig `mapstructure:"matching"`
	Probe    ProbeConfig    `mapstructure:"probe"`
}

// ServerConfig holds admin API configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"` // empty = by environment
}

// StoreConfig holds record store configuration
type StoreConfig struct {
	Driver         string        `mapstructure:"driver"` // "memory", "postgres" or "redis"
	DSN            string        `mapstructure:"dsn"`
	MaxConns       int           `mapstructure:"max_conns"`
	Table          string        `mapstructure:"table"`
	RedisAddrs     []string      `mapstructure:"redis_addrs"`
	RedisUsername  string        `mapstructure:"redis_username"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	Collection     string        `mapstructure:"collection"`
	MaxBatchSize   int           `mapstructure:"max_batch_size"`
	SeedFile       string        `mapstructure:"seed_file"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// MatchingConfig holds matching and allocation configuration
type MatchingConfig struct {
	Strategy      string `mapstructure:"strategy"`   // "weighted" or "keyword"
	Discipline    string `mapstructure:"discipline"` // "consume" or "round_robin"
	CatalogPath   string `mapstructure:"catalog_path"`
	VerifyCatalog bool   `mapstructure:"verify_catalog"`
	Debug         bool   `mapstructure:"debug"`
}

// ProbeConfig holds image URL probe configuration
type ProbeConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	UserAgent     string        `mapstructure:"user_agent"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"store-driver": "store.driver",
	"seed-file":    "store.seed_file",
	"collection":   "store.collection",
	"strategy":     "matching.strategy",
	"discipline":   "matching.discipline",
	"catalog":      "matching.catalog_path",
	"log-level":    "logging.level",
}

// RegisterFlags adds the overridable configuration flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file")
	fs.String("store-driver", "", "record store: memory, postgres or redis")
	fs.String("seed-file", "", "JSON snapshot loaded into the memory store")
	fs.String("collection", "", "collection holding the listings")
	fs.String("strategy", "", "matching strategy: weighted or keyword")
	fs.String("discipline", "", "allocation discipline: consume or round_robin")
	fs.String("catalog", "", "path to an image catalog YAML file")
	fs.String("log-level", "", "log level override: debug, info, warn, error")
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags loads configuration, letting flags registered with RegisterFlags
// take precedence over the environment and config file
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/stanslist/")

	// Environment variable settings
	v.SetEnvPrefix("STANSLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("logging.level", "")

	// Store defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.table", "records")
	v.SetDefault("store.redis_addrs", []string{})
	v.SetDefault("store.redis_username", "")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.key_prefix", "stanslist:")
	v.SetDefault("store.collection", "listings")
	v.SetDefault("store.max_batch_size", 500)
	v.SetDefault("store.seed_file", "")
	v.SetDefault("store.connect_timeout", "30s")

	// Matching defaults
	v.SetDefault("matching.strategy", "weighted")
	v.SetDefault("matching.discipline", "consume")
	v.SetDefault("matching.catalog_path", "")
	v.SetDefault("matching.verify_catalog", true)
	v.SetDefault("matching.debug", false)

	// Probe defaults
	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.rate_per_second", 10)
	v.SetDefault("probe.burst", 10)
	v.SetDefault("probe.user_agent", "stanslist-imagesync/1.0")
	v.SetDefault("probe.cache_ttl", "10m")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Server.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("server environment must be 'development', 'production' or 'test', got: %s", config.Server.Environment)
	}

	switch config.Store.Driver {
	case "memory":
	case "postgres":
		if config.Store.DSN == "" {
			return fmt.Errorf("store DSN is required when driver is 'postgres' (set STANSLIST_STORE_DSN)")
		}
	case "redis":
		if len(config.Store.RedisAddrs) == 0 {
			return fmt.Errorf("redis addresses are required when driver is 'redis' (set STANSLIST_STORE_REDIS_ADDRS)")
		}
	default:
		return fmt.Errorf("store driver must be 'memory', 'postgres' or 'redis', got: %s", config.Store.Driver)
	}

	if config.Store.Collection == "" {
		return fmt.Errorf("store collection is required")
	}

	if config.Store.MaxBatchSize < 1 || config.Store.MaxBatchSize > 500 {
		return fmt.Errorf("store max batch size must be between 1 and 500, got: %d", config.Store.MaxBatchSize)
	}

	if config.Matching.Strategy != "weighted" && config.Matching.Strategy != "keyword" {
		return fmt.Errorf("matching strategy must be 'weighted' or 'keyword', got: %s", config.Matching.Strategy)
	}

	if config.Matching.Discipline != "consume" && config.Matching.Discipline != "round_robin" {
		return fmt.Errorf("matching discipline must be 'consume' or 'round_robin', got: %s", config.Matching.Discipline)
	}

	if config.Probe.Timeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got: %s", config.Probe.Timeout)
	}

	if config.Probe.RatePerSecond <= 0 || config.Probe.Burst < 1 {
		return fmt.Errorf("probe rate and burst must be positive")
	}

	return nil
}

// loadEnvFile loads KEY=VALUE pairs from a .env file in the working directory.
// Variables already set in the environment are left untouched. Keys are
// uppercased, as viper folds them to lower case.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(".env")
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("read .env: %w", err)
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
