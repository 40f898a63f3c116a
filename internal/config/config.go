package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type App struct {
	Env      string `env:"ENV" envDefault:"development"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`
	Name     string `env:"APP_NAME" envDefault:"ug-admin"`
	Version  string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type HTTP struct {
	Host           string   `env:"HOST" envDefault:"0.0.0.0"`
	Port           int      `env:"PORT" envDefault:"8000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	BodyLimit      string   `env:"HTTP_BODY_LIMIT" envDefault:"60M"`
}

type DB struct {
	Backend         string        `env:"STORE_BACKEND" envDefault:"postgres"`
	URL             string        `env:"DATABASE_URL"`
	MigrationsPath  string        `env:"MIGRATIONS_PATH" envDefault:"file://db/migrations"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"15m"`
}

type Firebase struct {
	ProjectID string `env:"FIREBASE_PROJECT_ID"`
	CertsURL  string `env:"FIREBASE_CERTS_URL" envDefault:"https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"`
}

type Redis struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL" envDefault:"5m"`
}

type Kafka struct {
	BootstrapServers string `env:"KAFKA_BOOTSTRAP_SERVERS"`
	AuditTopic       string `env:"KAFKA_AUDIT_TOPIC" envDefault:"ug-admin.audit"`
}

type Email struct {
	Provider     string `env:"EMAIL_PROVIDER" envDefault:"mock"`
	FromAddress  string `env:"EMAIL_FROM" envDefault:"noreply@undergraduation.com"`
	FromName     string `env:"EMAIL_FROM_NAME" envDefault:"Undergraduation Admissions"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

type Storage struct {
	Dir     string `env:"STORAGE_DIR" envDefault:"./data/files"`
	BaseURL string `env:"STORAGE_BASE_URL" envDefault:"http://localhost:8000/static"`
}

type Config struct {
	App      App
	HTTP     HTTP
	DB       DB
	Firebase Firebase
	Redis    Redis
	Kafka    Kafka
	Email    Email
	Storage  Storage
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate catches combinations env tags cannot express.
func (c *Config) Validate() error {
	switch c.App.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("invalid ENV %q", c.App.Env)
	}

	switch strings.ToLower(c.DB.Backend) {
	case BackendPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store backend", BackendPostgres)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.DB.Backend)
	}

	if c.App.Env == EnvProduction && c.Firebase.ProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
