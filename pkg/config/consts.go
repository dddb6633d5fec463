package config

// EnvPrefix is the envconfig prefix shared by every variable below.
const EnvPrefix = "BOPIS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "BOPIS_APP_ENV"
	EnvPort       = "BOPIS_APP_PORT"
	EnvLogLevel   = "BOPIS_LOG_LEVEL"
	EnvDBDSN      = "BOPIS_DB_DSN"
	EnvDBHost     = "BOPIS_DB_HOST"
	EnvDBUser     = "BOPIS_DB_USER"
	EnvDBName     = "BOPIS_DB_NAME"
	EnvRedisURL   = "BOPIS_REDIS_URL"
	EnvJWTSecret  = "BOPIS_JWT_SECRET"
	EnvJWTIssuer  = "BOPIS_JWT_ISSUER"
	EnvJWTExpMins = "BOPIS_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
