package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"query-api/pkg/logger"
)

// ConfigPathEnvVar overrides the location of the optional YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// Config holds the application configuration.
type Config struct {
	DbConfig DbConfig      `koanf:"db"`
	Server   ServerConfig  `koanf:"server"`
	Queries  QueriesConfig `koanf:"queries"`
	Cache    CacheConfig   `koanf:"cache"`
	Redis    RedisConfig   `koanf:"redis"`
	Log      LogConfig     `koanf:"log"`
}

// DbConfig holds database-related configuration.
type DbConfig struct {
	Driver          string        `koanf:"driver" validate:"oneof=postgres sqlserver hdb duckdb"`
	Server          string        `koanf:"host" validate:"required_unless=Driver duckdb"`
	Port            int           `koanf:"port" validate:"min=0,max=65535"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Database        string        `koanf:"name"`
	SSLMode         string        `koanf:"sslmode"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"min=0"`
	QueryTimeout    time.Duration `koanf:"query_timeout" validate:"min=0"`
}

var defaultPorts = map[string]int{
	"postgres":  5432,
	"sqlserver": 1433,
	"hdb":       30015,
}

// applyDefaultPort fills in the driver's standard port when none is set.
func (c *DbConfig) applyDefaultPort() {
	if c.Port == 0 {
		c.Port = defaultPorts[c.Driver]
	}
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
}

// QueriesConfig points at the query catalog: a directory of .sql files
// or a single YAML document.
type QueriesConfig struct {
	Path            string `koanf:"path" validate:"required"`
	EnforceReadOnly bool   `koanf:"enforce_read_only"`
}

type CacheConfig struct {
	Backend string        `koanf:"backend" validate:"oneof=memory redis none"`
	TTL     time.Duration `koanf:"ttl" validate:"min=0"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"min=0"`
}

type LogConfig struct {
	Level      string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format     string `koanf:"format" validate:"oneof=console json"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
}

func defaultConfig() *Config {
	return &Config{
		DbConfig: DbConfig{
			Driver:          "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Addr:            ":5000",
			ShutdownTimeout: 10 * time.Second,
		},
		Queries: QueriesConfig{
			Path:            "queries",
			EnforceReadOnly: true,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     300 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

var envMappings = map[string]string{
	"db_driver":            "db.driver",
	"db_host":              "db.host",
	"db_port":              "db.port",
	"db_name":              "db.name",
	"db_user":              "db.user",
	"db_password":          "db.password",
	"db_sslmode":           "db.sslmode",
	"db_max_open_conns":    "db.max_open_conns",
	"db_max_idle_conns":    "db.max_idle_conns",
	"db_conn_max_lifetime": "db.conn_max_lifetime",
	"query_timeout":        "db.query_timeout",

	"http_addr":        "server.addr",
	"shutdown_timeout": "server.shutdown_timeout",

	"queries_path":              "queries.path",
	"queries_enforce_read_only": "queries.enforce_read_only",

	"cache_backend": "cache.backend",
	"cache_ttl":     "cache.ttl",

	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	"log_level":       "log.level",
	"log_format":      "log.format",
	"log_file":        "log.file",
	"log_max_size_mb": "log.max_size_mb",
	"log_max_backups": "log.max_backups",
}

func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// LoadConfig layers struct defaults, an optional YAML file and the
// environment (including a .env file) and validates the result.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file loaded, using process environment")
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	conf := &Config{}
	if err := k.Unmarshal("", conf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	conf.DbConfig.applyDefaultPort()

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("invalid config: redis.addr is required when cache.backend is redis")
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		logger.Warn().Str("path", p).Msg("config file from CONFIG_PATH not found, ignoring")
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
