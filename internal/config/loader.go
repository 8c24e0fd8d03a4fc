package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for nested configuration keys, e.g. VAULT_SERVER_PORT.
const EnvPrefix = "VAULT"

// DefaultMaxBodyBytes caps request bodies, and therefore attachment size.
const DefaultMaxBodyBytes int64 = 500 << 20

// flatEnv binds the short variable names operators already use for this service.
var flatEnv = map[string]string{
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"server.port":       "PORT",
}

// Load reads configuration from an optional YAML file, environment variables
// and defaults. ${VAR} placeholders in the file are expanded before parsing.
// A missing file is only an error when the path was given explicitly.
func Load(configPath string) (*Config, error) {
	v := newViper()

	explicit := configPath != ""
	if !explicit {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
		// defaults and environment only
	case os.IsNotExist(err):
		return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range flatEnv {
		// Prefixed names take precedence over the flat ones.
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "backtest-vault")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "trading_strategys")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 100)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.create_schema", false)
	v.SetDefault("database.sqlite_path", "backtest-vault.db")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("server.read_timeout", "5m")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.grpc_health_port", 0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("client.base_url", "http://localhost:5000/api/")
	v.SetDefault("client.timeout", "60s")
	v.SetDefault("client.retry_max", 0)
	v.SetDefault("client.rate_limit", 10.0)
}
