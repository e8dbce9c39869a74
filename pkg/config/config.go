package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Reservation  ReservationConfig
	Warranty     WarrantyConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SMARTPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"SMARTPOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SMARTPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SMARTPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SMARTPOS_DB_DSN"`

	Host     string `envconfig:"SMARTPOS_DB_HOST"`
	Port     int    `envconfig:"SMARTPOS_DB_PORT" default:"5432"`
	User     string `envconfig:"SMARTPOS_DB_USER"`
	Password string `envconfig:"SMARTPOS_DB_PASSWORD"`
	Name     string `envconfig:"SMARTPOS_DB_NAME"`
	SSLMode  string `envconfig:"SMARTPOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SMARTPOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMARTPOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMARTPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMARTPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SMARTPOS_REDIS_URL"`
	Address      string        `envconfig:"SMARTPOS_REDIS_ADDR"`
	Password     string        `envconfig:"SMARTPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMARTPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMARTPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMARTPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMARTPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMARTPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMARTPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ReservationConfig bounds checkout holds on serialized units.
type ReservationConfig struct {
	DefaultTimeoutMinutes int           `envconfig:"SMARTPOS_RESERVATION_DEFAULT_TIMEOUT_MINUTES" default:"15"`
	MaxTimeoutMinutes     int           `envconfig:"SMARTPOS_RESERVATION_MAX_TIMEOUT_MINUTES" default:"120"`
	SweepInterval         time.Duration `envconfig:"SMARTPOS_RESERVATION_SWEEP_INTERVAL" default:"1m"`
}

// DefaultTimeout returns the default hold duration.
func (r ReservationConfig) DefaultTimeout() time.Duration {
	if r.DefaultTimeoutMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(r.DefaultTimeoutMinutes) * time.Minute
}

type WarrantyConfig struct {
	DefaultMonths int `envconfig:"SMARTPOS_WARRANTY_DEFAULT_MONTHS" default:"36"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SMARTPOS_CRON_INTERVAL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SMARTPOS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := []struct {
		env   string
		value string
	}{
		{"SMARTPOS_DB_HOST", db.Host},
		{"SMARTPOS_DB_USER", db.User},
		{"SMARTPOS_DB_NAME", db.Name},
	}
	for _, item := range required {
		if item.value == "" {
			missing = append(missing, item.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either SMARTPOS_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
