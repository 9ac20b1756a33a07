package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rpattn/clientops/internal/db"
	"github.com/rpattn/clientops/internal/domain"
	"github.com/spf13/viper"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the full runtime configuration of the server.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database db.Config
	SQLite   SQLiteConfig
	Daily    DailyConfig
	Notify   NotifyConfig
	Archive  ArchiveConfig
}

type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type StoreConfig struct {
	Driver string
	Seed   bool
}

type SQLiteConfig struct {
	Path string
}

// DailyConfig holds the informed-status deadline.
type DailyConfig struct {
	Cutoff   domain.Cutoff
	Location *time.Location
}

type NotifyConfig struct {
	RedisAddr string
	Stream    string
}

type ArchiveConfig struct {
	Enabled     bool
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	Prefix      string
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix("CLIENTOPS") // map env vars like CLIENTOPS_SERVER_ADDR
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dbDefaults := db.DefaultConfig()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_rps", 25)
	v.SetDefault("server.rate_limit_burst", 50)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.seed", true)
	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("sqlite.path", "./data/clientops.db")
	v.SetDefault("daily.cutoff", domain.DefaultCutoff.String())
	v.SetDefault("daily.timezone", "Local")
	v.SetDefault("notify.redis_addr", "")
	v.SetDefault("notify.stream", "clientops:tickets")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.s3_region", "us-east-1")
	v.SetDefault("archive.s3_endpoint", "")
	v.SetDefault("archive.s3_access_key", "")
	v.SetDefault("archive.s3_secret_key", "")
	v.SetDefault("archive.s3_bucket", "")
	v.SetDefault("archive.prefix", "exports")
	return v
}

// Load reads config.yaml from configPath when present and applies
// CLIENTOPS_* environment overrides on top of the defaults.
func Load(configPath string) (Config, error) {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found? Just log it, use defaults + env
		log.Printf("[config] no config.yaml found, using defaults and env vars")
	} else {
		log.Printf("[config] loaded %s", v.ConfigFileUsed())
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			IdleTimeout:    v.GetDuration("server.idle_timeout"),
			CORSOrigins:    splitList(v.GetStringSlice("server.cors_origins")),
			RateLimitRPS:   v.GetFloat64("server.rate_limit_rps"),
			RateLimitBurst: v.GetInt("server.rate_limit_burst"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
			Seed:   v.GetBool("store.seed"),
		},
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		SQLite: SQLiteConfig{Path: v.GetString("sqlite.path")},
		Notify: NotifyConfig{
			RedisAddr: strings.TrimSpace(v.GetString("notify.redis_addr")),
			Stream:    v.GetString("notify.stream"),
		},
		Archive: ArchiveConfig{
			Enabled:     v.GetBool("archive.enabled"),
			S3Region:    v.GetString("archive.s3_region"),
			S3Endpoint:  v.GetString("archive.s3_endpoint"),
			S3AccessKey: v.GetString("archive.s3_access_key"),
			S3SecretKey: v.GetString("archive.s3_secret_key"),
			S3Bucket:    v.GetString("archive.s3_bucket"),
			Prefix:      strings.Trim(v.GetString("archive.prefix"), "/"),
		},
	}

	switch cfg.Store.Driver {
	case DriverMemory, DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("daily.timezone")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid daily.timezone: %w", err)
	}
	cutoff, err := domain.ParseCutoff(v.GetString("daily.cutoff"), loc)
	if err != nil {
		return Config{}, fmt.Errorf("invalid daily.cutoff: %w", err)
	}
	cfg.Daily = DailyConfig{Cutoff: cutoff, Location: loc}

	if cfg.Archive.Enabled && cfg.Archive.S3Bucket == "" {
		return Config{}, fmt.Errorf("archive.s3_bucket is required when archive is enabled")
	}

	return cfg, nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
