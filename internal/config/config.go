// Package config loads task-api settings.
//
// 優先順位: デフォルト < TOML ファイル (TASK_API_CONFIG) < 環境変数
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const EnvConfigFile = "TASK_API_CONFIG"

type DBConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

type Config struct {
	HTTPAddr    string `toml:"http_addr"`
	GRPCAddr    string `toml:"grpc_addr"`
	MetricsAddr string `toml:"metrics_addr"`

	// standard | reference
	Compat string `toml:"compat"`
	// memory | mysql
	Store string   `toml:"store"`
	DB    DBConfig `toml:"db"`

	LogLevel       string `toml:"log_level"`
	Development    bool   `toml:"development"`
	TracingEnabled bool   `toml:"tracing_enabled"`

	RequestTimeout  time.Duration `toml:"-"`
	ShutdownTimeout time.Duration `toml:"-"`
	HealthInterval  time.Duration `toml:"-"`

	// TOML では "3s" のような文字列で書く
	RawRequestTimeout  string `toml:"request_timeout"`
	RawShutdownTimeout string `toml:"shutdown_timeout"`
	RawHealthInterval  string `toml:"health_interval"`
}

// Default はすべてのデフォルト値を埋めた Config を返す。
func Default() Config {
	return Config{
		HTTPAddr:    ":8080",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9464",
		Compat:      "standard",
		Store:       "memory",
		DB: DBConfig{
			Host:     "127.0.0.1",
			Port:     "3306",
			User:     "root",
			Password: "root",
			Name:     "taskdb",
		},
		LogLevel:        "info",
		RequestTimeout:  3 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		HealthInterval:  10 * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load は設定を読み込む。ファイルが指定されていて読めない場合のみエラーを返す。
// 値がおかしいものは warn してデフォルトに落とす（起動失敗にはしない）。
func Load(logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	normalize(&cfg, logger)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenv("GRPC_ADDR", cfg.GRPCAddr)
	cfg.MetricsAddr = getenv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.Compat = getenv("TASK_COMPAT", cfg.Compat)
	cfg.Store = getenv("TASK_STORE", cfg.Store)

	cfg.DB.Host = getenv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getenv("DB_PORT", cfg.DB.Port)
	cfg.DB.User = getenv("DB_USER", cfg.DB.User)
	cfg.DB.Password = getenv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getenv("DB_NAME", cfg.DB.Name)

	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.RawRequestTimeout = getenv("REQUEST_TIMEOUT", cfg.RawRequestTimeout)
	cfg.RawShutdownTimeout = getenv("SHUTDOWN_TIMEOUT", cfg.RawShutdownTimeout)
	cfg.RawHealthInterval = getenv("HEALTH_INTERVAL", cfg.RawHealthInterval)

	if v := os.Getenv("DEVELOPMENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Development = b
		}
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TracingEnabled = b
		}
	}
}

func normalize(cfg *Config, logger *zap.Logger) {
	def := Default()

	cfg.RequestTimeout = parseDuration(logger, "request_timeout", cfg.RawRequestTimeout, def.RequestTimeout)
	cfg.ShutdownTimeout = parseDuration(logger, "shutdown_timeout", cfg.RawShutdownTimeout, def.ShutdownTimeout)
	cfg.HealthInterval = parseDuration(logger, "health_interval", cfg.RawHealthInterval, def.HealthInterval)

	switch cfg.Compat {
	case "standard", "reference":
	default:
		logger.Warn("invalid compat, fallback to standard", zap.String("raw", cfg.Compat))
		cfg.Compat = def.Compat
	}

	switch cfg.Store {
	case "memory", "mysql":
	default:
		logger.Warn("invalid store, fallback to memory", zap.String("raw", cfg.Store))
		cfg.Store = def.Store
	}
}

func parseDuration(logger *zap.Logger, key, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logger.Warn("invalid duration, fallback to default",
			zap.String("key", key),
			zap.String("raw", raw),
			zap.Duration("default", def),
		)
		return def
	}
	return d
}
