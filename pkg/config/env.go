package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "MARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv      = "MARKET_APP_ENV"
	EnvPort        = "MARKET_APP_PORT"
	EnvDBDSN       = "MARKET_DB_DSN"
	EnvDBDriver    = "MARKET_DB_DRIVER"
	EnvDBHost      = "MARKET_DB_HOST"
	EnvDBUser      = "MARKET_DB_USER"
	EnvDBName      = "MARKET_DB_NAME"
	EnvDBPassword  = "MARKET_DB_PASSWORD"
	EnvRedisURL    = "MARKET_REDIS_URL"
	EnvJWTSecret   = "MARKET_JWT_SECRET"
	EnvJWTIssuer   = "MARKET_JWT_ISSUER"
	EnvGCPProject  = "MARKET_GCP_PROJECT_ID"
	EnvOrdersTopic = "MARKET_PUBSUB_ORDERS_TOPIC"
	EnvOrigins     = "MARKET_REALTIME_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
