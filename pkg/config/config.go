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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Realtime     RealtimeConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
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
	Env          string `envconfig:"MARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKET_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MARKET_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"MARKET_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"MARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MARKET_DB_DSN"`
	Driver string `envconfig:"MARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKET_DB_USER"`
	LegacyPassword string `envconfig:"MARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"MARKET_DB_SLOW_QUERY" default:"200ms"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKET_REDIS_ADDR"`
	Password     string        `envconfig:"MARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies access tokens minted by the identity service.
type JWTConfig struct {
	Secret            string        `envconfig:"MARKET_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"MARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int           `envconfig:"MARKET_JWT_EXPIRATION_MINUTES" default:"60"`
	Leeway            time.Duration `envconfig:"MARKET_JWT_LEEWAY" default:"30s"`
	RequireSession    bool          `envconfig:"MARKET_JWT_REQUIRE_SESSION" default:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MARKET_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MARKET_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"MARKET_PUBSUB_ORDERS_TOPIC" default:"market-order-events"`
	ChatTopic   string `envconfig:"MARKET_PUBSUB_CHAT_TOPIC" default:"market-chat-events"`
}

type OutboxConfig struct {
	BatchSize        int `envconfig:"MARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS   int `envconfig:"MARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts      int `envconfig:"MARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays    int `envconfig:"MARKET_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int `envconfig:"MARKET_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

// RealtimeConfig tunes the websocket gateway.
type RealtimeConfig struct {
	WriteWait       time.Duration `envconfig:"MARKET_REALTIME_WRITE_WAIT" default:"10s"`
	PongWait        time.Duration `envconfig:"MARKET_REALTIME_PONG_WAIT" default:"60s"`
	MaxMessageBytes int64         `envconfig:"MARKET_REALTIME_MAX_MESSAGE_BYTES" default:"16384"`
	SendBuffer      int           `envconfig:"MARKET_REALTIME_SEND_BUFFER" default:"64"`
	AllowedOrigins  []string      `envconfig:"MARKET_REALTIME_ALLOWED_ORIGINS"`
}

// PingPeriod is how often the server pings idle connections.
func (r RealtimeConfig) PingPeriod() time.Duration {
	if r.PongWait <= 0 {
		return 0
	}
	return (r.PongWait * 9) / 10
}

type RateLimitConfig struct {
	ChatMessageWindow time.Duration `envconfig:"MARKET_RATE_LIMIT_CHAT_WINDOW" default:"1m"`
	ChatMessageLimit  int           `envconfig:"MARKET_RATE_LIMIT_CHAT_LIMIT" default:"60"`
	OrderCreateWindow time.Duration `envconfig:"MARKET_RATE_LIMIT_ORDER_WINDOW" default:"1m"`
	OrderCreateLimit  int           `envconfig:"MARKET_RATE_LIMIT_ORDER_LIMIT" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MARKET_CRON_INTERVAL" default:"24h"`
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
