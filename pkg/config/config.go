package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Marketplace   MarketplaceConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Marketplace.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"JEWELBID_APP_ENV" required:"true"`
	Port         string   `envconfig:"JEWELBID_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"JEWELBID_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"JEWELBID_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"JEWELBID_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"JEWELBID_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"JEWELBID_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"JEWELBID_DB_DSN"`

	LegacyHost     string `envconfig:"JEWELBID_DB_HOST"`
	LegacyPort     int    `envconfig:"JEWELBID_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"JEWELBID_DB_USER"`
	LegacyPassword string `envconfig:"JEWELBID_DB_PASSWORD"`
	LegacyName     string `envconfig:"JEWELBID_DB_NAME"`
	LegacySSLMode  string `envconfig:"JEWELBID_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JEWELBID_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JEWELBID_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JEWELBID_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JEWELBID_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// TxRetries bounds how often a transaction is replayed after a
	// serialization failure or deadlock.
	TxRetries int `envconfig:"JEWELBID_DB_TX_RETRIES" default:"3"`
	// SlowQuery is the duration above which a statement is logged at warn.
	SlowQuery time.Duration `envconfig:"JEWELBID_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"JEWELBID_REDIS_URL" required:"true"`
	Password     string        `envconfig:"JEWELBID_REDIS_PASSWORD"`
	PoolSize     int           `envconfig:"JEWELBID_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JEWELBID_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JEWELBID_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JEWELBID_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JEWELBID_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"JEWELBID_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"JEWELBID_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"JEWELBID_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"JEWELBID_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"JEWELBID_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"JEWELBID_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"JEWELBID_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"JEWELBID_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow    time.Duration `envconfig:"JEWELBID_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginLimit     int           `envconfig:"JEWELBID_AUTH_RATE_LIMIT_LOGIN_LIMIT" default:"5"`
	RegisterWindow time.Duration `envconfig:"JEWELBID_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterLimit  int           `envconfig:"JEWELBID_AUTH_RATE_LIMIT_REGISTER_LIMIT" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"JEWELBID_AUTO_MIGRATE" default:"false"`
}

// MarketplaceConfig holds the auction and listing rules.
type MarketplaceConfig struct {
	AntiSnipeWindow time.Duration `envconfig:"JEWELBID_AUCTION_ANTI_SNIPE" default:"5m"`
	MinBidIncrement int64         `envconfig:"JEWELBID_MIN_BID_INCREMENT" default:"1"`
	DefaultCurrency string        `envconfig:"JEWELBID_DEFAULT_CURRENCY" default:"USD"`
	BidRateLimit    int           `envconfig:"JEWELBID_BID_RATE_LIMIT" default:"20"`
	BidRateWindow   time.Duration `envconfig:"JEWELBID_BID_RATE_WINDOW" default:"60s"`
	CronSecret      string        `envconfig:"JEWELBID_CRON_SECRET"`
}

func (m MarketplaceConfig) validate() error {
	if m.AntiSnipeWindow <= 0 {
		return fmt.Errorf("%s must be positive", EnvAntiSnipe)
	}
	if m.MinBidIncrement <= 0 {
		return fmt.Errorf("%s must be positive", EnvMinBidIncrement)
	}
	if len(strings.TrimSpace(m.DefaultCurrency)) != 3 {
		return fmt.Errorf("%s must be a 3 letter currency code", EnvDefaultCurrency)
	}
	return nil
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"JEWELBID_CRON_INTERVAL" default:"1m"`
	LockTTL               time.Duration `envconfig:"JEWELBID_CRON_LOCK_TTL" default:"55s"`
	// Read notifications and published outbox rows older than these are pruned.
	NotificationRetention time.Duration `envconfig:"JEWELBID_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"JEWELBID_OUTBOX_RETENTION" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"JEWELBID_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"JEWELBID_PUBSUB_DOMAIN_TOPIC" default:"jb-domain-events"`
	DomainSubscription string `envconfig:"JEWELBID_PUBSUB_DOMAIN_SUBSCRIPTION" default:"jb-domain-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"JEWELBID_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"JEWELBID_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"JEWELBID_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
