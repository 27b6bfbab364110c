package config

const (
	EnvPrefix = "MOZZ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	ProdWebOrigin = "https://www.mozz.online"
	DevWebOrigin  = "http://localhost:5173"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:mozz.db?_foreign_keys=on"

	EnvAppEnv    = "MOZZ_APP_ENV"
	EnvPort      = "MOZZ_APP_PORT"
	EnvPublicURL = "MOZZ_PUBLIC_URL"
	EnvDBDSN     = "MOZZ_DB_DSN"
	EnvDBDriver  = "MOZZ_DB_DRIVER"
	EnvDBHost    = "MOZZ_DB_HOST"
	EnvDBUser    = "MOZZ_DB_USER"
	EnvDBName    = "MOZZ_DB_NAME"
	EnvRedisURL  = "MOZZ_REDIS_URL"
	EnvJWTSecret = "MOZZ_JWT_SECRET"
	EnvJWTIssuer = "MOZZ_JWT_ISSUER"
	EnvJWTExpMin = "MOZZ_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
