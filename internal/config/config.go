package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig    `mapstructure:"server"`
	Database      DatabaseConfig  `mapstructure:"database"`
	Connector     ConnectorConfig `mapstructure:"connector"`
	Executor      ExecutorConfig  `mapstructure:"executor"`
	Log           LogConfig       `mapstructure:"log"`
	JWTSecret     string          `mapstructure:"jwt_secret"`
	TokenTTLHours int             `mapstructure:"token_ttl_hours"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

// DatabaseConfig points at the Postgres database holding users, projects and queries.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"` // takes precedence over the discrete fields
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
}

// ConnectorConfig governs connections to user-registered databases.
type ConnectorConfig struct {
	ConnectTimeoutMs    int      `mapstructure:"connect_timeout_ms"`
	StatementTimeoutMs  int      `mapstructure:"statement_timeout_ms"`
	Flavors             []string `mapstructure:"flavors"`
	DescribeConcurrency int      `mapstructure:"describe_concurrency"`
	PreviewLimit        int      `mapstructure:"preview_limit"`
}

type ExecutorConfig struct {
	// StatementPolicy is an expr boolean expression over statement, verb and read_only.
	// Empty allows every statement.
	StatementPolicy string `mapstructure:"statement_policy"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ConnString returns the PostgreSQL connection string for the bookkeeping database.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func (c ConnectorConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

func (c ConnectorConfig) StatementTimeout() time.Duration {
	return time.Duration(c.StatementTimeoutMs) * time.Millisecond
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../..")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", "*")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "sqlscope")
	v.SetDefault("database.password", "sqlscope")
	v.SetDefault("database.name", "sqlscope")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("connector.connect_timeout_ms", 10000)
	v.SetDefault("connector.statement_timeout_ms", 30000)
	v.SetDefault("connector.flavors", []string{"postgres", "mysql", "mssql"})
	v.SetDefault("connector.describe_concurrency", 4)
	v.SetDefault("connector.preview_limit", 50)
	v.SetDefault("executor.statement_policy", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("jwt_secret", "changeme-secret")
	v.SetDefault("token_ttl_hours", 24)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
