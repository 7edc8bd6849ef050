package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Queue    QueueConfig    `yaml:"queue"`
	Mail     MailConfig     `yaml:"mail"`
	Cache    CacheConfig    `yaml:"cache"`
	Audit    AuditConfig    `yaml:"audit"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type QueueConfig struct {
	Backend      string        `yaml:"backend"`
	Workers      int           `yaml:"workers"`
	Capacity     int           `yaml:"capacity"`
	AMQPURL      string        `yaml:"amqp_url"`
	AMQPQueue    string        `yaml:"amqp_queue"`
	NATSURL      string        `yaml:"nats_url"`
	NATSStream   string        `yaml:"nats_stream"`
	NATSSubject  string        `yaml:"nats_subject"`
	NATSConsumer string        `yaml:"nats_consumer"`
	MaxRetries   int           `yaml:"max_retries"`
	Backoff      string        `yaml:"backoff"`
	RetryInitial time.Duration `yaml:"retry_initial"`
	RetryMax     time.Duration `yaml:"retry_max"`
}

type MailConfig struct {
	Server        string `yaml:"server"`
	Port          int    `yaml:"port"`
	UseTLS        bool   `yaml:"use_tls"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	DefaultSender string `yaml:"default_sender"`
}

type CacheConfig struct {
	ValkeyURL string        `yaml:"valkey_url"`
	ReportTTL time.Duration `yaml:"report_ttl"`
}

type AuditConfig struct {
	Delay              time.Duration `yaml:"delay"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
}

type ScheduleConfig struct {
	Interval    time.Duration `yaml:"interval"`
	DedupeDaily bool          `yaml:"dedupe_daily"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	BackendMemory = "memory"
	BackendAMQP   = "amqp"
	BackendNATS   = "nats"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "auditpulse.db"},
		Queue: QueueConfig{
			Backend:      BackendMemory,
			Workers:      4,
			Capacity:     100,
			AMQPQueue:    "auditpulse.deliveries",
			NATSStream:   "AUDITPULSE",
			NATSSubject:  "auditpulse.deliveries",
			NATSConsumer: "auditpulse-worker",
			MaxRetries:   3,
			Backoff:      "exponential",
			RetryInitial: time.Second,
			RetryMax:     30 * time.Second,
		},
		Mail: MailConfig{
			Port:          587,
			UseTLS:        true,
			DefaultSender: "reports@auditpulse.local",
		},
		Cache:    CacheConfig{ReportTTL: 24 * time.Hour},
		Audit:    AuditConfig{Delay: 2 * time.Second, RateLimitPerMinute: 6},
		Schedule: ScheduleConfig{Interval: 24 * time.Hour},
		Admin:    AdminConfig{Email: "admin@auditpulse.local"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load layers defaults, the optional YAML file, .env files and the process
// environment, in that order. Variables already present in the environment
// win over .env entries.
func Load(configPath string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("HTTP_ADDR", &c.HTTP.Addr)
	if port := os.Getenv("PORT"); port != "" && os.Getenv("HTTP_ADDR") == "" {
		c.HTTP.Addr = ":" + port
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.Driver, c.Database.DSN = ParseDatabaseURL(dsn)
	}

	str("QUEUE_BACKEND", &c.Queue.Backend)
	integer("QUEUE_WORKERS", &c.Queue.Workers)
	integer("QUEUE_CAPACITY", &c.Queue.Capacity)
	str("AMQP_URL", &c.Queue.AMQPURL)
	str("AMQP_QUEUE", &c.Queue.AMQPQueue)
	str("NATS_URL", &c.Queue.NATSURL)
	str("NATS_STREAM", &c.Queue.NATSStream)
	str("NATS_SUBJECT", &c.Queue.NATSSubject)
	str("NATS_CONSUMER", &c.Queue.NATSConsumer)
	integer("QUEUE_MAX_RETRIES", &c.Queue.MaxRetries)
	str("QUEUE_BACKOFF", &c.Queue.Backoff)
	duration("QUEUE_RETRY_INITIAL", &c.Queue.RetryInitial)
	duration("QUEUE_RETRY_MAX", &c.Queue.RetryMax)

	str("MAIL_SERVER", &c.Mail.Server)
	integer("MAIL_PORT", &c.Mail.Port)
	boolean("MAIL_USE_TLS", &c.Mail.UseTLS)
	str("MAIL_USERNAME", &c.Mail.Username)
	str("MAIL_PASSWORD", &c.Mail.Password)
	str("MAIL_DEFAULT_SENDER", &c.Mail.DefaultSender)

	str("REDIS_URL", &c.Cache.ValkeyURL)
	str("VALKEY_URL", &c.Cache.ValkeyURL)
	duration("REPORT_CACHE_TTL", &c.Cache.ReportTTL)

	duration("AUDIT_DELAY", &c.Audit.Delay)
	integer("AUDIT_RATE_LIMIT_PER_MINUTE", &c.Audit.RateLimitPerMinute)

	duration("SCHEDULE_INTERVAL", &c.Schedule.Interval)
	boolean("SCHEDULE_DEDUPE_DAILY", &c.Schedule.DedupeDaily)

	str("ADMIN_EMAIL", &c.Admin.Email)
	str("ADMIN_PASSWORD", &c.Admin.Password)

	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_DEVELOPMENT", &c.Log.Development)

	return errors.Join(errs...)
}

// ParseDatabaseURL maps DATABASE_URL onto a driver and DSN. Anything that is
// not a postgres URL is treated as a SQLite path.
func ParseDatabaseURL(raw string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DriverPostgres, raw
	case strings.HasPrefix(raw, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(raw, "sqlite://")
	default:
		return DriverSQLite, raw
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database driver %q not supported", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn required"))
	}

	switch c.Queue.Backend {
	case BackendMemory:
	case BackendAMQP:
		if c.Queue.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL required for amqp queue backend"))
		}
	case BackendNATS:
		if c.Queue.NATSURL == "" {
			errs = append(errs, errors.New("NATS_URL required for nats queue backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("queue backend %q not supported", c.Queue.Backend))
	}
	if c.Queue.Workers < 1 {
		errs = append(errs, errors.New("queue workers must be at least 1"))
	}
	if c.Queue.Capacity < 1 {
		errs = append(errs, errors.New("queue capacity must be at least 1"))
	}
	if c.Queue.MaxRetries < 0 {
		errs = append(errs, errors.New("queue max retries must not be negative"))
	}

	if c.Mail.Server != "" && (c.Mail.Port <= 0 || c.Mail.Port > 65535) {
		errs = append(errs, fmt.Errorf("mail port %d out of range", c.Mail.Port))
	}
	if c.Audit.Delay < 0 {
		errs = append(errs, errors.New("audit delay must not be negative"))
	}
	if c.Schedule.Interval <= 0 {
		errs = append(errs, errors.New("schedule interval must be positive"))
	}
	if c.Admin.Password != "" && c.Admin.Email == "" {
		errs = append(errs, errors.New("ADMIN_EMAIL required when ADMIN_PASSWORD is set"))
	}

	return errors.Join(errs...)
}
