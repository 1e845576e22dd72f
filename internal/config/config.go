// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Backends for the channel and settings routes.
const (
	BackendDatabase = "database"
	BackendScript   = "script"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Automation   AutomationConfig
	Cron         CronConfig
	Orchestrator OrchestratorConfig
	Redis        RedisConfig
	RabbitMQ     RabbitMQConfig
	Upload       UploadConfig
	Videos       VideosConfig
	Channels     BackendConfig
	Settings     BackendConfig
	Accounts     AccountsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Logging      LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects and configures the record store.
type DatabaseConfig struct {
	Driver   string
	Mongo    MongoConfig
	Postgres PostgresConfig
}

// MongoConfig contains MongoDB connection configuration.
type MongoConfig struct {
	URI            string
	Name           string
	MaxPoolSize    uint64
	MinPoolSize    uint64
	ConnectTimeout time.Duration
}

// PostgresConfig contains PostgreSQL connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PostgresConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// AutomationConfig describes how the external automation script is run.
type AutomationConfig struct {
	PythonDir     string
	Script        string
	PythonBin     string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

// CronConfig gates the /api/cron trigger.
type CronConfig struct {
	Secret string
}

// OrchestratorConfig configures the workflow-orchestration webhook surface.
type OrchestratorConfig struct {
	AppID       string
	SigningKey  string
	LegacyDaily bool
}

// RedisConfig points asynq at redis. An empty URL disables queueing.
type RedisConfig struct {
	URL string
	// Concurrency bounds the worker's parallel function runs.
	Concurrency int
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// UploadConfig switches the manual upload route on or off.
type UploadConfig struct {
	Enabled         bool
	DisabledMessage string
}

// VideosConfig switches the pending-video listing on or off.
type VideosConfig struct {
	Enabled         bool
	DefaultLimit    int
	DisabledMessage string
}

// BackendConfig selects where a resource is read from and written to.
type BackendConfig struct {
	Backend string
}

// AccountsConfig locates the channels_config.json file.
type AccountsConfig struct {
	ConfigPath string
}

// RateLimitConfig limits the trigger routes.
type RateLimitConfig struct {
	RequestsPerMinute float64
	Burst             int
}

// CORSConfig lists the dashboard origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string
	File   string
	Format string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindLegacyEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindLegacyEnv keeps the variable names the dashboard has always been deployed with.
func bindLegacyEnv() {
	_ = viper.BindEnv("database.mongo.uri", "APP_DATABASE_MONGO_URI", "MONGODB_URI")
	_ = viper.BindEnv("cron.secret", "APP_CRON_SECRET", "CRON_SECRET")
	_ = viper.BindEnv("orchestrator.signingkey", "APP_ORCHESTRATOR_SIGNINGKEY", "INNGEST_SIGNING_KEY")
	_ = viper.BindEnv("redis.url", "APP_REDIS_URL", "REDIS_URL")
	_ = viper.BindEnv("server.port", "APP_SERVER_PORT", "PORT")
}

// Validate rejects combinations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverPostgres, DriverNone:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	for name, b := range map[string]string{"channels": c.Channels.Backend, "settings": c.Settings.Backend} {
		switch b {
		case BackendDatabase:
			if c.Database.Driver == DriverNone {
				return fmt.Errorf("%s backend %q requires a database driver", name, b)
			}
		case BackendScript:
		default:
			return fmt.Errorf("unknown %s backend %q", name, b)
		}
	}

	if c.Automation.Timeout <= 0 || c.Automation.UploadTimeout <= 0 {
		return errors.New("automation timeouts must be positive")
	}

	return nil
}

// PostgresURL builds a connection URL for pgx and golang-migrate.
func (p PostgresConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode)
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.readtimeout", 15*time.Second)
	viper.SetDefault("server.writetimeout", 20*time.Minute)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.driver", DriverMongo)
	viper.SetDefault("database.mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.mongo.name", "yt_automation")
	viper.SetDefault("database.mongo.maxpoolsize", 50)
	viper.SetDefault("database.mongo.minpoolsize", 5)
	viper.SetDefault("database.mongo.connecttimeout", 5*time.Second)
	viper.SetDefault("database.postgres.host", "localhost")
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.name", "yt_automation")
	viper.SetDefault("database.postgres.user", "postgres")
	viper.SetDefault("database.postgres.password", "postgres")
	viper.SetDefault("database.postgres.sslmode", "disable")
	viper.SetDefault("database.postgres.maxconnections", 10)
	viper.SetDefault("database.postgres.minconnections", 2)
	viper.SetDefault("database.postgres.maxidletime", 10*time.Minute)
	viper.SetDefault("database.postgres.maxlifetime", 1*time.Hour)

	// Automation
	viper.SetDefault("automation.pythondir", "python")
	viper.SetDefault("automation.script", "automation.py")
	viper.SetDefault("automation.pythonbin", "")
	viper.SetDefault("automation.timeout", 30*time.Second)
	viper.SetDefault("automation.uploadtimeout", 15*time.Minute)

	// Cron & orchestration
	viper.SetDefault("cron.secret", "")
	viper.SetDefault("orchestrator.appid", "yt-shorts-automation")
	viper.SetDefault("orchestrator.signingkey", "")
	viper.SetDefault("orchestrator.legacydaily", false)
	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.concurrency", 1)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "uploads")
	viper.SetDefault("rabbitmq.queue", "uploads.completed")
	viper.SetDefault("rabbitmq.routingkey", "upload.completed")

	// Features
	viper.SetDefault("upload.enabled", true)
	viper.SetDefault("upload.disabledmessage", "Manual uploads are not available in this deployment. Uploads run automatically at 8AM, 1PM, and 8PM IST.")
	viper.SetDefault("videos.enabled", true)
	viper.SetDefault("videos.defaultlimit", 20)
	viper.SetDefault("videos.disabledmessage", "Video list is fetched during scheduled uploads. View upload history instead.")
	viper.SetDefault("channels.backend", BackendDatabase)
	viper.SetDefault("settings.backend", BackendDatabase)
	viper.SetDefault("accounts.configpath", "python/channels_config.json")

	// HTTP extras
	viper.SetDefault("ratelimit.requestsperminute", 6)
	viper.SetDefault("ratelimit.burst", 3)
	viper.SetDefault("cors.allowedorigins", []string{"http://localhost:3000"})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
	viper.SetDefault("logging.format", "console")
}
