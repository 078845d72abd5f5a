package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env             string `envconfig:"GRAINLEDGER_APP_ENV" required:"true"`
	Port            string `envconfig:"GRAINLEDGER_APP_PORT" required:"true"`
	LogLevel        string `envconfig:"GRAINLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack    bool   `envconfig:"GRAINLEDGER_LOG_WARN_STACK" default:"false"`
	DefaultCropYear string `envconfig:"GRAINLEDGER_DEFAULT_CROP_YEAR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GRAINLEDGER_DB_DSN"`
	Driver string `envconfig:"GRAINLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GRAINLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"GRAINLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GRAINLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"GRAINLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"GRAINLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"GRAINLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GRAINLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GRAINLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GRAINLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GRAINLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GRAINLEDGER_REDIS_URL"`
	Address      string        `envconfig:"GRAINLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"GRAINLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"GRAINLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GRAINLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GRAINLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GRAINLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GRAINLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GRAINLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig holds the static shared-secret gate protecting every operator route.
type AuthConfig struct {
	SharedSecret   string        `envconfig:"GRAINLEDGER_SHARED_SECRET" required:"true"`
	IdempotencyTTL time.Duration `envconfig:"GRAINLEDGER_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GRAINLEDGER_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GRAINLEDGER_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"GRAINLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"GRAINLEDGER_GCS_BUCKET_NAME"`
	UploadURLExpiry   time.Duration `envconfig:"GRAINLEDGER_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"GRAINLEDGER_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type PubSubConfig struct {
	TicketEventsTopic string `envconfig:"GRAINLEDGER_PUBSUB_TICKET_EVENTS_TOPIC" default:"gl-ticket-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GRAINLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GRAINLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GRAINLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
